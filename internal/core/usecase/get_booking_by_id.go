package usecase

import (
	"context"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"

	"github.com/google/uuid"
)

type GetBookingByIDUseCase struct {
	bookings port.BookingStoragePort
}

func NewGetBookingByIDUseCase(bookings port.BookingStoragePort) *GetBookingByIDUseCase {
	return &GetBookingByIDUseCase{bookings: bookings}
}

func (uc *GetBookingByIDUseCase) Execute(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":   "GetBookingByID",
		"booking_id": bookingID.String(),
	})

	ucLogger.Info("Use case started", nil)

	booking, err := uc.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}

	ucLogger.Info("Use case finished successfully", nil)
	return booking, nil
}
