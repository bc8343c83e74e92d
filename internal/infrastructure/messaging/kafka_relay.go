// Package messaging relays committed sale and invoice events to Kafka for
// downstream consumers.
package messaging

import (
	"context"
	"fmt"

	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/retailcore/backoffice/internal/domain/trade"
	"github.com/retailcore/backoffice/internal/infrastructure/config"
	"github.com/retailcore/backoffice/internal/infrastructure/event"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// Header names set on every relayed message
const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
)

// MessageWriter is the part of *kafka.Writer the relay uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter builds an asynchronous writer for the events topic.
// Delivery failures surface through the completion callback as log lines.
func NewKafkaWriter(cfg config.KafkaConfig, logger *zap.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.WriteTimeout,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err == nil {
				return
			}
			for _, m := range messages {
				logger.Error("Failed to deliver event to Kafka",
					zap.String("topic", cfg.Topic),
					zap.ByteString("key", m.Key),
					zap.String("event_type", headerValue(m.Headers, HeaderEventType)),
					zap.Error(err),
				)
			}
		},
	}
}

// KafkaEventRelay is an event bus handler that forwards SaleCreated and
// InvoiceIssued events. Messages are keyed by aggregate id so all events of
// one sale land on the same partition in order.
type KafkaEventRelay struct {
	writer     MessageWriter
	serializer *event.EventSerializer
	logger     *zap.Logger
}

// NewKafkaEventRelay creates a relay writing through writer
func NewKafkaEventRelay(writer MessageWriter, serializer *event.EventSerializer, logger *zap.Logger) *KafkaEventRelay {
	return &KafkaEventRelay{
		writer:     writer,
		serializer: serializer,
		logger:     logger,
	}
}

// EventTypes returns the relayed event types
func (r *KafkaEventRelay) EventTypes() []string {
	return []string{trade.EventTypeSaleCreated, trade.EventTypeInvoiceIssued}
}

// Handle serializes the event and hands it to the writer
func (r *KafkaEventRelay) Handle(ctx context.Context, evt shared.DomainEvent) error {
	value, err := r.serializer.Serialize(evt)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", evt.EventType(), err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []kafka.Header{
		{Key: HeaderEventType, Value: []byte(evt.EventType())},
		{Key: HeaderEventID, Value: []byte(evt.EventID().String())},
	}
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	msg := kafka.Message{
		Key:     []byte(evt.AggregateID().String()),
		Value:   value,
		Headers: headers,
		Time:    evt.OccurredAt(),
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write %s to kafka: %w", evt.EventType(), err)
	}

	r.logger.Debug("Event relayed",
		zap.String("event_type", evt.EventType()),
		zap.String("event_id", evt.EventID().String()),
	)
	return nil
}

// Close flushes pending messages
func (r *KafkaEventRelay) Close() error {
	return r.writer.Close()
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

var _ shared.EventHandler = (*KafkaEventRelay)(nil)
