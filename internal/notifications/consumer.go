package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"product-catalog/internal/products"
	"product-catalog/internal/products/messaging"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	consumerTag = "notifications-service"
	tracerName  = "product-catalog/notifications"
)

// errMalformed marks events that will never decode; they are dropped instead
// of requeued.
var errMalformed = errors.New("malformed event")

type Consumer struct {
	channel *amqp.Channel
	queue   string
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewConsumer(conn *amqp.Connection, queue string, logger *slog.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := messaging.DeclareQueue(ch, queue); err != nil {
		_ = ch.Close()
		return nil, err
	}

	return &Consumer{
		channel: ch,
		queue:   queue,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

func (c *Consumer) Listen(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue,
		consumerTag,
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue %q: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg amqp.Delivery) {
	ctx, span := c.tracer.Start(ctx, "consume "+c.queue,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.message.id", msg.MessageId),
			attribute.String("messaging.destination.name", c.queue),
		),
	)
	defer span.End()

	if err := c.handle(ctx, msg.Body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.ErrorContext(ctx, "handle message failed", "error", err, "message_id", msg.MessageId)
		_ = msg.Nack(false, !errors.Is(err, errMalformed))
		return
	}

	_ = msg.Ack(false)
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var event products.ProductEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}

	switch event.EventType {
	case products.EventCreated, products.EventUpdated, products.EventDeleted:
	default:
		return fmt.Errorf("%w: unknown event type %q", errMalformed, event.EventType)
	}

	c.logger.InfoContext(ctx, "notification event",
		"event_type", event.EventType,
		"product_id", event.ProductID,
		"title", event.Title,
		"status", event.Status,
		"timestamp", event.Timestamp,
	)

	return nil
}

func (c *Consumer) Close() error {
	return c.channel.Close()
}
