package analytics

import (
	"search-analytics-service/internal/core/domain"
	"time"
	_ "time/tzdata" // zone database for images without /usr/share/zoneinfo

	"github.com/bradfitz/latlong"
	cal "github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// HolidayChecker tells whether a calendar day is a public holiday.
type HolidayChecker interface {
	IsHoliday(day time.Time) bool
}

type businessCalendar struct {
	c *cal.BusinessCalendar
}

// NewUSHolidayCalendar returns the US federal holiday calendar.
func NewUSHolidayCalendar() HolidayChecker {
	c := cal.NewBusinessCalendar()
	c.AddHoliday(
		us.NewYear,
		us.MlkDay,
		us.PresidentsDay,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)
	return &businessCalendar{c: c}
}

func (b *businessCalendar) IsHoliday(day time.Time) bool {
	actual, observed, _ := b.c.IsHoliday(day)
	return actual || observed
}

// LocationFor resolves the time zone of a coordinate. The second value is false
// when the zone is unknown and UTC is returned instead.
func LocationFor(c domain.Coordinate) (*time.Location, bool) {
	name := latlong.LookupZoneName(c.Latitude, c.Longitude)
	if name == "" {
		return time.UTC, false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, false
	}
	return loc, true
}

// localDay is the calendar day of t in loc, expressed as UTC midnight so it can be
// compared with stored check-in dates.
func localDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole days from a to b, rounding towards negative infinity.
func daysBetween(a, b time.Time) int {
	hours := b.Sub(a).Hours()
	days := int(hours / 24)
	if hours < 0 && float64(days)*24 != hours {
		days--
	}
	return days
}
