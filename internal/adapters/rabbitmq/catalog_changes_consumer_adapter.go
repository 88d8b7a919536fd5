package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"search-analytics-service/internal/contextkeys"
	"search-analytics-service/internal/contracts"
	"search-analytics-service/internal/core/port"
	"search-analytics-service/internal/core/port/usecases_port"
	"search-analytics-service/pkg/rabbitmq/rabbitmq_common"
	"search-analytics-service/pkg/rabbitmq/rabbitmq_consumer"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const changeTypeCatalogReset = "catalog_reset"

// PropertyChangedDTO matches the PropertyChangedEvent schema.
type PropertyChangedDTO struct {
	EventID    uuid.UUID  `json:"event_id"`
	PropertyID *uuid.UUID `json:"property_id,omitempty"`
	ChangeType string     `json:"change_type"`
}

// CatalogChangesConsumerAdapter listens to catalog changes and drops the affected cache entries.
type CatalogChangesConsumerAdapter struct {
	consumer *rabbitmq_consumer.DistributingConsumer
	useCase  usecases_port.InvalidateCatalogUseCase
	logger   port.LoggerPort
}

var _ port.EventListenerPort = (*CatalogChangesConsumerAdapter)(nil)

func NewCatalogChangesConsumerAdapter(
	consumerCfg rabbitmq_consumer.ConsumerConfig,
	useCase usecases_port.InvalidateCatalogUseCase,
	maxInFlight int,
	connManager *rabbitmq_common.ConnectionManager,
	logger port.LoggerPort,
) (*CatalogChangesConsumerAdapter, error) {
	adapter := &CatalogChangesConsumerAdapter{
		useCase: useCase,
		logger:  logger.WithFields(port.Fields{"component": "CatalogChangesConsumerAdapter"}),
	}

	consumer, err := rabbitmq_consumer.NewDistributingConsumer(consumerCfg, adapter.handleDelivery, maxInFlight, connManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ consumer for catalog changes: %w", err)
	}
	adapter.consumer = consumer
	return adapter, nil
}

// handleDelivery returns ErrPermanent for messages that fail the contract so that
// they skip the retry loop.
func (a *CatalogChangesConsumerAdapter) handleDelivery(ctx context.Context, d amqp.Delivery) error {
	traceID, _ := d.Headers["trace-id"].(string)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	logger := a.logger.WithFields(port.Fields{"trace_id": traceID, "message_id": d.MessageId})
	ctx = contextkeys.ContextWithTraceID(ctx, traceID)
	ctx = contextkeys.ContextWithLogger(ctx, logger)

	eventType, _ := d.Headers[contracts.HeaderEventType].(string)
	eventVersion, _ := d.Headers[contracts.HeaderEventVersion].(string)
	if err := contracts.ValidateEvent(eventType, eventVersion, d.Body); err != nil {
		logger.Warn("Message failed schema validation", port.Fields{"error": err.Error()})
		return fmt.Errorf("%w: %v", rabbitmq_consumer.ErrPermanent, err)
	}

	var dto PropertyChangedDTO
	if err := json.Unmarshal(d.Body, &dto); err != nil {
		return fmt.Errorf("%w: unmarshal property changed event: %v", rabbitmq_consumer.ErrPermanent, err)
	}

	propertyID := uuid.Nil
	if dto.ChangeType != changeTypeCatalogReset && dto.PropertyID != nil {
		propertyID = *dto.PropertyID
	}

	logger.Info("Catalog change received", port.Fields{
		"change_type": dto.ChangeType,
		"property_id": propertyID.String(),
	})
	return a.useCase.Execute(ctx, propertyID)
}

func (a *CatalogChangesConsumerAdapter) Start(ctx context.Context) error {
	return a.consumer.StartConsuming(ctx)
}

func (a *CatalogChangesConsumerAdapter) Close() error {
	return a.consumer.Close()
}
