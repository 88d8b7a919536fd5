package analytics

import (
	"search-analytics-service/internal/core/domain"
	"time"

	"github.com/google/uuid"
)

type PerformanceAggregator struct {
	now func() time.Time
}

func NewPerformanceAggregator() *PerformanceAggregator {
	return &PerformanceAggregator{now: time.Now}
}

// Aggregate builds the performance summary of a property over [period.Start, period.End).
// Only bookings with check-in inside the period are counted. The period must already be validated.
func (p *PerformanceAggregator) Aggregate(
	propertyID uuid.UUID,
	period domain.DateRange,
	unitCount int,
	bookings []domain.Booking,
	reviews []domain.Review,
) domain.PerformanceSummary {
	summary := domain.PerformanceSummary{
		PropertyID:  propertyID,
		Range:       period,
		UnitCount:   unitCount,
		GeneratedAt: p.now().UTC(),
	}

	for _, b := range bookings {
		if !period.Contains(domain.TruncateToDay(b.CheckIn)) {
			continue
		}
		if b.Status == domain.BookingStatusCancelled {
			summary.CancellationsCount++
			continue
		}
		summary.BookingsCount++

		if !b.Status.EarnsRevenue() {
			continue
		}
		summary.RevenueTotal += b.TotalPrice
		if clipped, ok := b.Stay().Intersect(period); ok {
			summary.BookedNights += clipped.Nights()
		}
	}

	if total := summary.BookingsCount + summary.CancellationsCount; total > 0 {
		summary.CancellationRate = float64(summary.CancellationsCount) / float64(total)
	}

	summary.AvailableNights = unitCount * period.Nights()
	if summary.AvailableNights > 0 {
		summary.OccupancyRate = float64(summary.BookedNights) / float64(summary.AvailableNights)
		if summary.OccupancyRate > 1 {
			summary.OccupancyRate = 1
		}
	}
	if summary.BookedNights > 0 {
		summary.AverageDailyRate = summary.RevenueTotal / float64(summary.BookedNights)
	}

	var ratingSum float64
	for _, r := range reviews {
		if !period.Contains(domain.TruncateToDay(r.CreatedAt)) {
			continue
		}
		ratingSum += r.Rating
		summary.ReviewCount++
	}
	if summary.ReviewCount > 0 {
		summary.AverageRating = ratingSum / float64(summary.ReviewCount)
	}

	return summary
}
