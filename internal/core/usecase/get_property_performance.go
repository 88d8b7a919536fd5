package usecase

import (
	"context"
	"fmt"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/analytics"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"

	"github.com/google/uuid"
)

type GetPropertyPerformanceUseCase struct {
	properties port.PropertyStoragePort
	bookings   port.BookingStoragePort
	reviews    port.ReviewStoragePort
	aggregator *analytics.PerformanceAggregator
}

func NewGetPropertyPerformanceUseCase(
	properties port.PropertyStoragePort,
	bookings port.BookingStoragePort,
	reviews port.ReviewStoragePort,
	aggregator *analytics.PerformanceAggregator,
) *GetPropertyPerformanceUseCase {
	return &GetPropertyPerformanceUseCase{
		properties: properties,
		bookings:   bookings,
		reviews:    reviews,
		aggregator: aggregator,
	}
}

func (uc *GetPropertyPerformanceUseCase) Execute(ctx context.Context, propertyID uuid.UUID, period domain.DateRange) (*domain.PerformanceSummary, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":    "GetPropertyPerformance",
		"property_id": propertyID.String(),
		"start_date":  period.Start.Format(domain.DateLayout),
		"end_date":    period.End.Format(domain.DateLayout),
	})

	ucLogger.Info("Use case started", nil)

	// start >= end is rejected before storage is touched
	if err := period.Validate(); err != nil {
		ucLogger.Warn("Invalid date range", port.Fields{"error": err.Error()})
		return nil, err
	}

	if _, err := uc.properties.GetPropertyByID(ctx, propertyID); err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}

	units, err := uc.properties.GetUnitsByProperty(ctx, propertyID)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, fmt.Errorf("load units of property %s: %w", propertyID, err)
	}

	bookings, err := uc.bookings.GetBookingsByProperty(ctx, propertyID, &period)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, fmt.Errorf("load bookings of property %s: %w", propertyID, err)
	}

	reviews, err := uc.reviews.GetReviewsByProperty(ctx, propertyID, period)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, fmt.Errorf("load reviews of property %s: %w", propertyID, err)
	}

	summary := uc.aggregator.Aggregate(propertyID, period, len(units), bookings, reviews)

	ucLogger.Info("Use case finished successfully", port.Fields{
		"bookings":  summary.BookingsCount,
		"occupancy": summary.OccupancyRate,
	})
	return &summary, nil
}
