// Package analytics turns booking history into window and performance statistics.
// All functions are pure: data is loaded by the caller and passed in.
package analytics

import (
	"fmt"
	"search-analytics-service/internal/core/domain"
	"time"
)

type bucketBounds struct {
	label string
	min   int
	max   *int
}

func intPtr(v int) *int { return &v }

var leadTimeBuckets = []bucketBounds{
	{label: "0-1", min: 0, max: intPtr(1)},
	{label: "2-7", min: 2, max: intPtr(7)},
	{label: "8-30", min: 8, max: intPtr(30)},
	{label: "31+", min: 31},
}

type BookingWindowAnalyzer struct {
	holidays HolidayChecker
	now      func() time.Time
}

func NewBookingWindowAnalyzer(holidays HolidayChecker) *BookingWindowAnalyzer {
	return &BookingWindowAnalyzer{holidays: holidays, now: time.Now}
}

// Analyze computes the booking window of a property from its bookings.
// Cancelled bookings are ignored. Check-in range, when given, limits the bookings taken into account.
// An empty set gives a zero-filled stat.
func (a *BookingWindowAnalyzer) Analyze(property domain.Property, bookings []domain.Booking, checkInRange *domain.DateRange) domain.BookingWindowStat {
	stat := domain.BookingWindowStat{
		PropertyID:      property.ID,
		Range:           checkInRange,
		LeadTimeBuckets: newBuckets(),
		CheckInsByMonth: newMonths(),
		Anomalies:       []domain.DataAnomaly{},
		GeneratedAt:     a.now().UTC(),
	}

	loc, known := LocationFor(property.Location)

	var totalLead, totalNights int
	for _, b := range bookings {
		if b.Status == domain.BookingStatusCancelled {
			continue
		}
		checkIn := domain.TruncateToDay(b.CheckIn)
		if checkInRange != nil && !checkInRange.Contains(checkIn) {
			continue
		}

		lead := daysBetween(localDay(b.CreatedAt, loc), checkIn)
		if lead < 0 {
			stat.Anomalies = append(stat.Anomalies, domain.DataAnomaly{
				BookingID: b.ID,
				Kind:      domain.AnomalyNegativeLeadTime,
				Detail: fmt.Sprintf("created %s after check-in %s",
					b.CreatedAt.In(loc).Format(time.RFC3339), checkIn.Format(domain.DateLayout)),
			})
			lead = 0
		}

		stat.BookingsAnalyzed++
		totalLead += lead
		totalNights += b.Nights()
		addToBucket(stat.LeadTimeBuckets, lead)
		stat.CheckInsByMonth[checkIn.Month()-1].Count++
		if a.holidays != nil && a.holidays.IsHoliday(checkIn) {
			stat.HolidayCheckIns++
		}
	}

	if stat.BookingsAnalyzed == 0 {
		return stat
	}

	if !known {
		stat.Anomalies = append(stat.Anomalies, domain.DataAnomaly{
			Kind:   domain.AnomalyUnknownTimezone,
			Detail: fmt.Sprintf("no time zone for %.5f,%.5f, UTC used", property.Location.Latitude, property.Location.Longitude),
		})
	}

	n := float64(stat.BookingsAnalyzed)
	stat.AverageLeadTimeDays = float64(totalLead) / n
	stat.AverageLengthOfStay = float64(totalNights) / n
	return stat
}

func newBuckets() []domain.LeadTimeBucket {
	out := make([]domain.LeadTimeBucket, 0, len(leadTimeBuckets))
	for _, b := range leadTimeBuckets {
		out = append(out, domain.LeadTimeBucket{Label: b.label, MinDays: b.min, MaxDays: b.max})
	}
	return out
}

func newMonths() []domain.MonthCount {
	out := make([]domain.MonthCount, 0, 12)
	for m := time.January; m <= time.December; m++ {
		out = append(out, domain.MonthCount{Month: m})
	}
	return out
}

func addToBucket(buckets []domain.LeadTimeBucket, lead int) {
	for i := range buckets {
		if lead < buckets[i].MinDays {
			continue
		}
		if buckets[i].MaxDays == nil || lead <= *buckets[i].MaxDays {
			buckets[i].Count++
			return
		}
	}
}
