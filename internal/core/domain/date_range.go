package domain

import "time"

const DateLayout = "2006-01-02"

// DateRange is a half-open range of calendar days [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates both ends to UTC calendar days.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: TruncateToDay(start), End: TruncateToDay(end)}
}

// ParseDateRange parses two YYYY-MM-DD strings.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, NewValidationError("start", "expected date in format %s", DateLayout)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, NewValidationError("end", "expected date in format %s", DateLayout)
	}
	return NewDateRange(s, e), nil
}

func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return NewValidationError("date_range", "both start and end are required")
	}
	if !r.Start.Before(r.End) {
		return NewValidationError("date_range", "start %s must be before end %s",
			r.Start.Format(DateLayout), r.End.Format(DateLayout))
	}
	return nil
}

// Overlaps is the half-open overlap test used everywhere: a1 < b2 && b1 < a2.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Contains reports whether t falls in [Start, End).
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Nights is the number of whole days in the range.
func (r DateRange) Nights() int {
	if !r.Start.Before(r.End) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// Intersect returns the overlapping part of two ranges and false when they do not overlap.
func (r DateRange) Intersect(other DateRange) (DateRange, bool) {
	if !r.Overlaps(other) {
		return DateRange{}, false
	}
	start := r.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := r.End
	if other.End.Before(end) {
		end = other.End
	}
	return DateRange{Start: start, End: end}, true
}
