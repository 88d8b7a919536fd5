package usecase

import (
	"context"
	"errors"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"
	"time"
)

const expireBatchSize = 100

type ExpirePendingBookingsUseCase struct {
	bookings  port.BookingStoragePort
	publisher port.BookingEventPublisherPort
	notifier  port.NotifierPort
}

func NewExpirePendingBookingsUseCase(bookings port.BookingStoragePort, publisher port.BookingEventPublisherPort, notifier port.NotifierPort) *ExpirePendingBookingsUseCase {
	return &ExpirePendingBookingsUseCase{bookings: bookings, publisher: publisher, notifier: notifier}
}

// Execute cancels Pending bookings created before olderThan, in batches.
// A booking confirmed in the meantime is skipped.
func (uc *ExpirePendingBookingsUseCase) Execute(ctx context.Context, olderThan time.Time) (int, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":   "ExpirePendingBookings",
		"older_than": olderThan.UTC().Format(time.RFC3339),
	})

	ucLogger.Info("Use case started", nil)

	expired := 0
	for {
		batch, err := uc.bookings.GetStalePendingBookings(ctx, olderThan, expireBatchSize)
		if err != nil {
			ucLogger.Error("Storage returned an error", err, nil)
			return expired, err
		}

		progressed := 0
		for _, b := range batch {
			cancelled, err := uc.bookings.UpdateBookingStatus(ctx, b.ID, domain.BookingStatusPending, domain.BookingStatusCancelled)
			if errors.Is(err, domain.ErrInvalidStatusTransition) || errors.Is(err, domain.ErrNotFound) {
				ucLogger.Debug("Booking changed before expiry, skipped", port.Fields{"booking_id": b.ID.String()})
				continue
			}
			if err != nil {
				ucLogger.Error("Storage returned an error", err, port.Fields{"booking_id": b.ID.String()})
				return expired, err
			}
			progressed++
			announce(ctx, ucLogger, uc.publisher, uc.notifier, port.BookingEventExpired, *cancelled)
		}
		expired += progressed

		if len(batch) < expireBatchSize || progressed == 0 {
			break
		}
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"expired": expired})
	return expired, nil
}
