package port

import (
	"context"
	"search-analytics-service/internal/core/domain"
)

type BookingEventType string

const (
	BookingEventConfirmed BookingEventType = "booking.confirmed"
	BookingEventCancelled BookingEventType = "booking.cancelled"
	BookingEventExpired   BookingEventType = "booking.expired"
)

// BookingEventPublisherPort announces booking lifecycle changes to the rest of the platform.
type BookingEventPublisherPort interface {
	PublishBookingEvent(ctx context.Context, eventType BookingEventType, booking domain.Booking) error
}
