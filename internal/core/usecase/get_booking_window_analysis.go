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

type GetBookingWindowAnalysisUseCase struct {
	properties port.PropertyStoragePort
	bookings   port.BookingStoragePort
	analyzer   *analytics.BookingWindowAnalyzer
}

func NewGetBookingWindowAnalysisUseCase(
	properties port.PropertyStoragePort,
	bookings port.BookingStoragePort,
	analyzer *analytics.BookingWindowAnalyzer,
) *GetBookingWindowAnalysisUseCase {
	return &GetBookingWindowAnalysisUseCase{properties: properties, bookings: bookings, analyzer: analyzer}
}

func (uc *GetBookingWindowAnalysisUseCase) Execute(ctx context.Context, propertyID uuid.UUID, checkInRange *domain.DateRange) (*domain.BookingWindowStat, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":    "GetBookingWindowAnalysis",
		"property_id": propertyID.String(),
	})

	ucLogger.Info("Use case started", nil)

	if checkInRange != nil {
		if err := checkInRange.Validate(); err != nil {
			ucLogger.Warn("Invalid check-in range", port.Fields{"error": err.Error()})
			return nil, err
		}
	}

	property, err := uc.properties.GetPropertyByID(ctx, propertyID)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}

	bookings, err := uc.bookings.GetBookingsByProperty(ctx, propertyID, checkInRange)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, fmt.Errorf("load bookings of property %s: %w", propertyID, err)
	}

	stat := uc.analyzer.Analyze(*property, bookings, checkInRange)

	for _, anomaly := range stat.Anomalies {
		ucLogger.Warn("Data anomaly in booking history", port.Fields{
			"booking_id": anomaly.BookingID.String(),
			"kind":       string(anomaly.Kind),
			"detail":     anomaly.Detail,
		})
	}

	ucLogger.Info("Use case finished successfully", port.Fields{
		"bookings_analyzed": stat.BookingsAnalyzed,
		"anomalies":         len(stat.Anomalies),
	})
	return &stat, nil
}
