package usecase

import (
	"context"
	"fmt"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"

	"github.com/google/uuid"
)

type CancelBookingUseCase struct {
	bookings  port.BookingStoragePort
	publisher port.BookingEventPublisherPort
	notifier  port.NotifierPort
}

func NewCancelBookingUseCase(bookings port.BookingStoragePort, publisher port.BookingEventPublisherPort, notifier port.NotifierPort) *CancelBookingUseCase {
	return &CancelBookingUseCase{bookings: bookings, publisher: publisher, notifier: notifier}
}

func (uc *CancelBookingUseCase) Execute(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":   "CancelBooking",
		"booking_id": bookingID.String(),
	})

	ucLogger.Info("Use case started", nil)

	current, err := uc.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}
	if !current.Status.CanTransitionTo(domain.BookingStatusCancelled) {
		ucLogger.Warn("Booking cannot be cancelled", port.Fields{"status": string(current.Status)})
		return nil, fmt.Errorf("%w: booking is %s", domain.ErrInvalidStatusTransition, current.Status)
	}

	// cancelling frees the unit, no lock needed
	cancelled, err := uc.bookings.UpdateBookingStatus(ctx, bookingID, current.Status, domain.BookingStatusCancelled)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}

	announce(ctx, ucLogger, uc.publisher, uc.notifier, port.BookingEventCancelled, *cancelled)

	ucLogger.Info("Use case finished successfully", nil)
	return cancelled, nil
}
