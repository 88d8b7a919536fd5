package rabbitmq_consumer

import (
	"context"
	"errors"
	"fmt"
	"search-analytics-service/pkg/rabbitmq/rabbitmq_common"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler processes one delivery. The consumer acks on nil and
// routes the message through the retry topology otherwise.
type MessageHandler func(ctx context.Context, delivery amqp.Delivery) error

// ErrPermanent marks a message that will never succeed; it skips the retries
// and goes straight to the final DLQ.
var ErrPermanent = errors.New("permanent message failure")

type failureAction int

const (
	actionDrop failureAction = iota
	actionRetry
	actionDeadLetter
)

func decideOnFailure(handlerErr error, retryEnabled bool, deaths int64, maxRetries int) failureAction {
	if !retryEnabled {
		return actionDrop
	}
	if errors.Is(handlerErr, ErrPermanent) || deaths >= int64(maxRetries) {
		return actionDeadLetter
	}
	return actionRetry
}

// DistributingConsumer runs the handler for each delivery in its own goroutine,
// at most maxInFlight at a time.
type DistributingConsumer struct {
	baseConsumer *baseConsumer
	handler      MessageHandler
	slots        chan struct{}
}

func NewDistributingConsumer(cfg ConsumerConfig, handler MessageHandler, maxInFlight int, connManager *rabbitmq_common.ConnectionManager) (*DistributingConsumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("distributing Consumer: message handler is required")
	}
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	if cfg.PrefetchCount <= 0 {
		cfg.PrefetchCount = maxInFlight
	}

	bc, err := newBaseConsumer(cfg, connManager)
	if err != nil {
		return nil, fmt.Errorf("distributing Consumer: %w", err)
	}

	return &DistributingConsumer{
		baseConsumer: bc,
		handler:      handler,
		slots:        make(chan struct{}, maxInFlight),
	}, nil
}

// StartConsuming blocks until ctx is cancelled (returns nil) or the connection drops (returns its error).
func (c *DistributingConsumer) StartConsuming(ctx context.Context) error {
	bc := c.baseConsumer
	if bc.channel == nil || bc.connection == nil || bc.connection.IsClosed() {
		return fmt.Errorf("distributing Consumer: not connected")
	}

	msgs, err := bc.channel.Consume(
		bc.actualQueueName,
		bc.config.ConsumerTag,
		false, // auto-ack
		bc.config.ExclusiveConsumer,
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("distributing Consumer %s: failed to register a consumer on queue '%s': %w", bc.config.ConsumerTag, bc.actualQueueName, err)
	}

	bc.Logger.Info("[*] Waiting for messages on queue", "queue_name", bc.actualQueueName)

	go c.dispatch(ctx, msgs)

	notifyClose := bc.connection.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-ctx.Done():
		bc.Logger.Info("Context cancelled. Shutting down consumer.", "consumer_tag", bc.config.ConsumerTag)
		return nil
	case amqpErr := <-notifyClose:
		if amqpErr == nil {
			return fmt.Errorf("distributing Consumer: connection closed")
		}
		bc.Logger.Error(amqpErr, "Connection closed for consumer.", "consumer_tag", bc.config.ConsumerTag)
		return amqpErr
	}
}

func (c *DistributingConsumer) dispatch(ctx context.Context, msgs <-chan amqp.Delivery) {
	bc := c.baseConsumer
	for {
		// a cancelled context wins over a ready message
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				bc.Logger.Info("Deliveries channel closed by RabbitMQ", "consumer_tag", bc.config.ConsumerTag)
				return
			}
			select {
			case c.slots <- struct{}{}:
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return
			}
			bc.wg.Add(1)
			go func(delivery amqp.Delivery) {
				defer bc.wg.Done()
				defer func() { <-c.slots }()
				c.handle(ctx, delivery)
			}(d)
		}
	}
}

func (c *DistributingConsumer) handle(ctx context.Context, delivery amqp.Delivery) {
	bc := c.baseConsumer

	processErr := c.handler(ctx, delivery)
	if processErr == nil {
		_ = delivery.Ack(false)
		bc.Logger.Debug("[+] Message Ack'd", "delivery_tag", delivery.DeliveryTag)
		return
	}

	bc.Logger.Error(processErr, "Handler error for message", "delivery_tag", delivery.DeliveryTag)

	deaths := deathCount(delivery.Headers, bc.actualQueueName)
	switch decideOnFailure(processErr, bc.config.EnableRetryMechanism, deaths, bc.config.MaxRetries) {
	case actionDrop:
		_ = delivery.Nack(false, false)
	case actionRetry:
		bc.Logger.Info("Retrying message", "delivery_tag", delivery.DeliveryTag, "death_count", deaths)
		_ = delivery.Nack(false, false)
	case actionDeadLetter:
		err := bc.finalDlxPublisher.Publish(context.Background(), bc.config.FinalDLQRoutingKey, amqp.Publishing{
			ContentType:  delivery.ContentType,
			Body:         delivery.Body,
			Headers:      delivery.Headers,
			Timestamp:    time.Now(),
			DeliveryMode: amqp.Persistent,
		})
		if err != nil {
			bc.Logger.Error(err, "Failed to publish to final DLX, message goes around the retry loop again",
				"delivery_tag", delivery.DeliveryTag)
			_ = delivery.Nack(false, false)
			return
		}
		bc.Logger.Warn("Message moved to final DLQ", "delivery_tag", delivery.DeliveryTag, "death_count", deaths)
		_ = delivery.Ack(false)
	}
}

func (c *DistributingConsumer) Close() error {
	c.baseConsumer.Logger.Info("Closing consumer")
	return c.baseConsumer.Close()
}
