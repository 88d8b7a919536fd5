package usecase

import (
	"context"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"
)

// announce publishes the lifecycle event and notifies the guest. The booking is already
// committed, so failures are logged and never undo the transition.
func announce(
	ctx context.Context,
	logger port.LoggerPort,
	publisher port.BookingEventPublisherPort,
	notifier port.NotifierPort,
	eventType port.BookingEventType,
	booking domain.Booking,
) {
	if err := publisher.PublishBookingEvent(ctx, eventType, booking); err != nil {
		logger.Error("Failed to publish booking event", err, port.Fields{"event_type": string(eventType)})
	}

	notifier.SendMessage(ctx, booking.GuestID, port.UserMessage{
		Type: string(eventType),
		Payload: port.BookingNotice{
			BookingID:  booking.ID,
			UnitID:     booking.UnitID,
			PropertyID: booking.PropertyID,
			Status:     string(booking.Status),
			CheckIn:    booking.CheckIn.Format(domain.DateLayout),
			CheckOut:   booking.CheckOut.Format(domain.DateLayout),
		},
	})
}
