package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/contracts"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher is satisfied by *rabbitmq_producer.Publisher.
type AMQPPublisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

type bookingStatusChangedDTO struct {
	BookingID  uuid.UUID `json:"booking_id"`
	UnitID     uuid.UUID `json:"unit_id"`
	PropertyID uuid.UUID `json:"property_id"`
	GuestID    uuid.UUID `json:"guest_id"`
	Status     string    `json:"status"`
	CheckIn    string    `json:"check_in"`
	CheckOut   string    `json:"check_out"`
	TotalPrice float64   `json:"total_price"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookingEventsEnqueueAdapter publishes booking lifecycle events to booking_exchange.
// The event type is the routing key.
type BookingEventsEnqueueAdapter struct {
	publisher AMQPPublisher
	now       func() time.Time
}

func NewBookingEventsEnqueueAdapter(publisher AMQPPublisher) *BookingEventsEnqueueAdapter {
	return &BookingEventsEnqueueAdapter{publisher: publisher, now: time.Now}
}

var _ port.BookingEventPublisherPort = (*BookingEventsEnqueueAdapter)(nil)

func (a *BookingEventsEnqueueAdapter) PublishBookingEvent(ctx context.Context, eventType port.BookingEventType, booking domain.Booking) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":  "BookingEventsEnqueueAdapter",
		"event_type": string(eventType),
		"booking_id": booking.ID.String(),
	})

	body, err := json.Marshal(bookingStatusChangedDTO{
		BookingID:  booking.ID,
		UnitID:     booking.UnitID,
		PropertyID: booking.PropertyID,
		GuestID:    booking.GuestID,
		Status:     string(booking.Status),
		CheckIn:    booking.CheckIn.Format(domain.DateLayout),
		CheckOut:   booking.CheckOut.Format(domain.DateLayout),
		TotalPrice: booking.TotalPrice,
		OccurredAt: a.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}
	if err := contracts.ValidateEvent(contracts.BookingStatusChangedEvent, contracts.Version1, body); err != nil {
		return fmt.Errorf("booking event violates its contract: %w", err)
	}

	headers := amqp.Table{
		contracts.HeaderEventType:    contracts.BookingStatusChangedEvent,
		contracts.HeaderEventVersion: contracts.Version1,
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		headers["trace-id"] = traceID
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    a.now(),
		Headers:      headers,
		Body:         body,
	}
	if err := a.publisher.Publish(ctx, string(eventType), msg); err != nil {
		return domain.DependencyError("publish booking event", err)
	}

	logger.Debug("Booking event published", nil)
	return nil
}

// DisabledBookingEventsAdapter is used when RabbitMQ is switched off.
type DisabledBookingEventsAdapter struct{}

func (DisabledBookingEventsAdapter) PublishBookingEvent(ctx context.Context, eventType port.BookingEventType, booking domain.Booking) error {
	contextkeys.LoggerFromContext(ctx).Debug("RabbitMQ disabled, booking event not published", port.Fields{
		"event_type": string(eventType),
		"booking_id": booking.ID.String(),
	})
	return nil
}
