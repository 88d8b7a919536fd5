package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/contracts"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"
	"search-analytics-service/pkg/rabbitmq/rabbitmq_consumer"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAMQP struct {
	routingKey string
	msg        amqp.Publishing
	err        error
}

func (f *fakeAMQP) Publish(_ context.Context, routingKey string, msg amqp.Publishing) error {
	f.routingKey = routingKey
	f.msg = msg
	return f.err
}

func sampleBooking() domain.Booking {
	return domain.Booking{
		ID:         uuid.New(),
		UnitID:     uuid.New(),
		PropertyID: uuid.New(),
		GuestID:    uuid.New(),
		CheckIn:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Status:     domain.BookingStatusConfirmed,
		TotalPrice: 420,
	}
}

func TestBookingEventsEnqueue(t *testing.T) {
	amqpFake := &fakeAMQP{}
	adapter := NewBookingEventsEnqueueAdapter(amqpFake)
	booking := sampleBooking()
	ctx := contextkeys.ContextWithTraceID(context.Background(), "trace-1")

	require.NoError(t, adapter.PublishBookingEvent(ctx, port.BookingEventConfirmed, booking))

	assert.Equal(t, "booking.confirmed", amqpFake.routingKey)
	assert.Equal(t, "application/json", amqpFake.msg.ContentType)
	assert.Equal(t, contracts.BookingStatusChangedEvent, amqpFake.msg.Headers[contracts.HeaderEventType])
	assert.Equal(t, "trace-1", amqpFake.msg.Headers["trace-id"])
	assert.NoError(t, contracts.ValidateEvent(contracts.BookingStatusChangedEvent, contracts.Version1, amqpFake.msg.Body))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(amqpFake.msg.Body, &body))
	assert.Equal(t, "2024-03-01", body["check_in"])
	assert.Equal(t, booking.GuestID.String(), body["guest_id"])
}

func TestBookingEventsEnqueue_BrokerFailureIsDependencyError(t *testing.T) {
	adapter := NewBookingEventsEnqueueAdapter(&fakeAMQP{err: errors.New("channel closed")})

	err := adapter.PublishBookingEvent(context.Background(), port.BookingEventCancelled, sampleBooking())
	assert.True(t, errors.Is(err, domain.ErrDependencyUnavailable))
}

func TestDisabledBookingEvents(t *testing.T) {
	assert.NoError(t, DisabledBookingEventsAdapter{}.PublishBookingEvent(context.Background(), port.BookingEventExpired, sampleBooking()))
}

type fakeInvalidate struct {
	ids []uuid.UUID
	err error
}

func (f *fakeInvalidate) Execute(_ context.Context, propertyID uuid.UUID) error {
	f.ids = append(f.ids, propertyID)
	return f.err
}

func newTestConsumer(uc *fakeInvalidate) *CatalogChangesConsumerAdapter {
	return &CatalogChangesConsumerAdapter{useCase: uc, logger: contextkeys.LoggerFromContext(context.Background())}
}

func delivery(body string) amqp.Delivery {
	return amqp.Delivery{
		Headers: amqp.Table{
			contracts.HeaderEventType:    contracts.PropertyChangedEvent,
			contracts.HeaderEventVersion: contracts.Version1,
		},
		Body: []byte(body),
	}
}

func TestCatalogChangesConsumer(t *testing.T) {
	uc := &fakeInvalidate{}
	adapter := newTestConsumer(uc)
	propertyID := uuid.New()

	updated := `{"event_id":"` + uuid.NewString() + `","property_id":"` + propertyID.String() + `","change_type":"updated","occurred_at":"2024-03-01T10:00:00Z"}`
	reset := `{"event_id":"` + uuid.NewString() + `","change_type":"catalog_reset","occurred_at":"2024-03-01T10:00:00Z"}`

	require.NoError(t, adapter.handleDelivery(context.Background(), delivery(updated)))
	require.NoError(t, adapter.handleDelivery(context.Background(), delivery(reset)))
	assert.Equal(t, []uuid.UUID{propertyID, uuid.Nil}, uc.ids)
}

func TestCatalogChangesConsumer_InvalidMessagesArePermanent(t *testing.T) {
	uc := &fakeInvalidate{}
	adapter := newTestConsumer(uc)

	err := adapter.handleDelivery(context.Background(), delivery(`{"change_type":"updated"}`))
	assert.True(t, errors.Is(err, rabbitmq_consumer.ErrPermanent))

	noHeaders := delivery(`{}`)
	noHeaders.Headers = nil
	err = adapter.handleDelivery(context.Background(), noHeaders)
	assert.True(t, errors.Is(err, rabbitmq_consumer.ErrPermanent))
	assert.Empty(t, uc.ids)
}

func TestCatalogChangesConsumer_UseCaseErrorIsRetryable(t *testing.T) {
	uc := &fakeInvalidate{err: errors.New("memcached down")}
	adapter := newTestConsumer(uc)
	body := `{"event_id":"` + uuid.NewString() + `","property_id":"` + uuid.NewString() + `","change_type":"deleted","occurred_at":"2024-03-01T10:00:00Z"}`

	err := adapter.handleDelivery(context.Background(), delivery(body))
	require.Error(t, err)
	assert.False(t, errors.Is(err, rabbitmq_consumer.ErrPermanent))
}

type capturingLogger struct {
	last port.Fields
}

func (c *capturingLogger) Info(_ string, f port.Fields)           { c.last = f }
func (c *capturingLogger) Warn(_ string, f port.Fields)           { c.last = f }
func (c *capturingLogger) Error(_ string, _ error, f port.Fields) { c.last = f }
func (c *capturingLogger) Debug(_ string, f port.Fields)          { c.last = f }
func (c *capturingLogger) WithFields(port.Fields) port.LoggerPort { return c }

func TestPkgLoggerBridge(t *testing.T) {
	internal := &capturingLogger{}
	bridge := NewPkgLoggerBridge(internal)

	bridge.Info("declared", "queue", "catalog_changes", 42, "ignored", "dangling")
	assert.Equal(t, port.Fields{"queue": "catalog_changes"}, internal.last)
}
