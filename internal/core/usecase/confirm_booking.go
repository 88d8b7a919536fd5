package usecase

import (
	"context"
	"fmt"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"

	"github.com/google/uuid"
)

type ConfirmBookingUseCase struct {
	bookings  port.BookingStoragePort
	locker    port.UnitLockerPort
	publisher port.BookingEventPublisherPort
	notifier  port.NotifierPort
}

func NewConfirmBookingUseCase(
	bookings port.BookingStoragePort,
	locker port.UnitLockerPort,
	publisher port.BookingEventPublisherPort,
	notifier port.NotifierPort,
) *ConfirmBookingUseCase {
	return &ConfirmBookingUseCase{bookings: bookings, locker: locker, publisher: publisher, notifier: notifier}
}

func (uc *ConfirmBookingUseCase) Execute(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":   "ConfirmBooking",
		"booking_id": bookingID.String(),
	})

	ucLogger.Info("Use case started", nil)

	current, err := uc.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}
	if !current.Status.CanTransitionTo(domain.BookingStatusConfirmed) {
		ucLogger.Warn("Booking cannot be confirmed", port.Fields{"status": string(current.Status)})
		return nil, fmt.Errorf("%w: booking is %s", domain.ErrInvalidStatusTransition, current.Status)
	}

	unlock, err := uc.locker.Lock(ctx, current.UnitID)
	if err != nil {
		ucLogger.Error("Failed to acquire unit lock", err, nil)
		return nil, fmt.Errorf("lock unit %s: %w", current.UnitID, err)
	}
	confirmed, err := uc.bookings.UpdateBookingStatus(ctx, bookingID, current.Status, domain.BookingStatusConfirmed)
	unlock()
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}

	announce(ctx, ucLogger, uc.publisher, uc.notifier, port.BookingEventConfirmed, *confirmed)

	ucLogger.Info("Use case finished successfully", nil)
	return confirmed, nil
}
