package usecase

import (
	"context"
	"errors"
	"search-analytics-service/internal/core/analytics"
	"search-analytics-service/internal/core/availability"
	"search-analytics-service/internal/core/domain"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPropertyPerformance_ReversedRangeSkipsStorage(t *testing.T) {
	f := newFixture()
	uc := NewGetPropertyPerformanceUseCase(f.storage, f.storage, f.storage, analytics.NewPerformanceAggregator())

	for _, period := range []domain.DateRange{
		stay("2024-03-10", "2024-03-01"),
		stay("2024-03-10", "2024-03-10"),
	} {
		_, err := uc.Execute(context.Background(), uuid.New(), period)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	}
	assert.Zero(t, f.storage.calls.Load())
}

func TestGetPropertyPerformance_EmptyHistory(t *testing.T) {
	f := newFixture()
	p := f.addProperty("quiet", 4, domain.Coordinate{Latitude: 53.9, Longitude: 27.56})
	f.addUnit(p, time.Now())
	uc := NewGetPropertyPerformanceUseCase(f.storage, f.storage, f.storage, analytics.NewPerformanceAggregator())

	summary, err := uc.Execute(context.Background(), p.ID, stay("2024-03-01", "2024-04-01"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, summary.OccupancyRate)
	assert.Equal(t, 0.0, summary.RevenueTotal)
	assert.Equal(t, 1, summary.UnitCount)
}

func TestGetPropertyPerformance_Aggregates(t *testing.T) {
	f := newFixture()
	p := f.addProperty("busy", 4, domain.Coordinate{})
	u := f.addUnit(p, time.Now())
	b := f.addBooking(u, domain.BookingStatusConfirmed, "2024-03-01", "2024-03-06")
	f.addBooking(u, domain.BookingStatusCancelled, "2024-03-07", "2024-03-08")
	require.NoError(t, f.storage.AddReview(domain.Review{ID: uuid.New(), PropertyID: p.ID, Rating: 4, CreatedAt: day("2024-03-07")}))
	uc := NewGetPropertyPerformanceUseCase(f.storage, f.storage, f.storage, analytics.NewPerformanceAggregator())

	summary, err := uc.Execute(context.Background(), p.ID, stay("2024-03-01", "2024-03-11"))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BookingsCount)
	assert.Equal(t, 1, summary.CancellationsCount)
	assert.Equal(t, b.Nights(), summary.BookedNights)
	assert.InDelta(t, 0.5, summary.OccupancyRate, 1e-9)
	assert.Equal(t, 1, summary.ReviewCount)
}

func TestGetPropertyPerformance_UnknownProperty(t *testing.T) {
	f := newFixture()
	uc := NewGetPropertyPerformanceUseCase(f.storage, f.storage, f.storage, analytics.NewPerformanceAggregator())

	_, err := uc.Execute(context.Background(), uuid.New(), stay("2024-03-01", "2024-03-02"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestGetBookingWindowAnalysis(t *testing.T) {
	f := newFixture()
	p := f.addProperty("analyzed", 4, domain.Coordinate{Latitude: 53.9, Longitude: 27.56})
	u := f.addUnit(p, time.Now())
	f.addBooking(u, domain.BookingStatusConfirmed, "2024-03-01", "2024-03-03")
	f.addBooking(u, domain.BookingStatusCancelled, "2024-03-05", "2024-03-06")
	uc := NewGetBookingWindowAnalysisUseCase(f.storage, f.storage, analytics.NewBookingWindowAnalyzer(analytics.NewUSHolidayCalendar()))

	stat, err := uc.Execute(context.Background(), p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stat.BookingsAnalyzed)
	assert.InDelta(t, 2.0, stat.AverageLengthOfStay, 1e-9)
	assert.InDelta(t, 3.0, stat.AverageLeadTimeDays, 1e-9)

	empty := f.addProperty("empty", 1, domain.Coordinate{Latitude: 53.9, Longitude: 27.56})
	stat, err = uc.Execute(context.Background(), empty.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, stat.BookingsAnalyzed)
	assert.Len(t, stat.LeadTimeBuckets, 4)

	_, err = uc.Execute(context.Background(), uuid.New(), nil)
	assert.True(t, errors.Is(err, domain.ErrPropertyNotFound))

	reversed := stay("2024-03-05", "2024-03-01")
	_, err = uc.Execute(context.Background(), p.ID, &reversed)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture()
	p := f.addProperty("p", 4, domain.Coordinate{})
	u := f.addUnit(p, time.Now())
	f.addBooking(u, domain.BookingStatusConfirmed, "2024-03-01", "2024-03-05")
	uc := NewCheckAvailabilityUseCase(f.storage, availability.NewCalculator(f.storage, time.Second))
	ctx := context.Background()

	free, err := uc.Execute(ctx, u.ID, stay("2024-03-05", "2024-03-08"))
	require.NoError(t, err)
	assert.True(t, free)

	free, err = uc.Execute(ctx, u.ID, stay("2024-03-04", "2024-03-06"))
	require.NoError(t, err)
	assert.False(t, free)

	_, err = uc.Execute(ctx, uuid.New(), stay("2024-03-04", "2024-03-06"))
	assert.True(t, errors.Is(err, domain.ErrUnitNotFound))
}
