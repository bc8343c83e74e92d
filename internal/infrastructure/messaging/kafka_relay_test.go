package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/retailcore/backoffice/internal/domain/trade"
	"github.com/retailcore/backoffice/internal/infrastructure/config"
	"github.com/retailcore/backoffice/internal/infrastructure/event"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func saleCreated() *trade.SaleCreatedEvent {
	return &trade.SaleCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(trade.EventTypeSaleCreated, trade.AggregateTypeSale, uuid.New(), uuid.New()),
		PaymentMethod:   trade.PaymentMethodCash,
		Total:           decimal.RequireFromString("121.00"),
	}
}

func TestKafkaEventRelay_Handle(t *testing.T) {
	writer := &fakeWriter{}
	relay := NewKafkaEventRelay(writer, event.NewTradeEventSerializer(), zap.NewNop())
	evt := saleCreated()

	require.NoError(t, relay.Handle(context.Background(), evt))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, evt.AggregateID().String(), string(msg.Key))
	assert.Equal(t, trade.EventTypeSaleCreated, headerValue(msg.Headers, HeaderEventType))
	assert.Equal(t, evt.EventID().String(), headerValue(msg.Headers, HeaderEventID))

	var env event.Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, trade.EventTypeSaleCreated, env.Type)
	assert.Equal(t, evt.AggregateID(), env.AggregateID)
}

func TestKafkaEventRelay_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("leader not available")}
	relay := NewKafkaEventRelay(writer, event.NewTradeEventSerializer(), zap.NewNop())

	err := relay.Handle(context.Background(), saleCreated())
	assert.ErrorContains(t, err, "leader not available")
}

func TestKafkaEventRelay_RejectsUnregisteredEvent(t *testing.T) {
	writer := &fakeWriter{}
	relay := NewKafkaEventRelay(writer, event.NewEventSerializer(), zap.NewNop())

	assert.Error(t, relay.Handle(context.Background(), saleCreated()))
	assert.Empty(t, writer.messages)
}

func TestKafkaEventRelay_SubscribedThroughBus(t *testing.T) {
	writer := &fakeWriter{}
	relay := NewKafkaEventRelay(writer, event.NewTradeEventSerializer(), zap.NewNop())
	bus := event.NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(relay)

	quote := &trade.QuoteCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(trade.EventTypeQuoteCreated, trade.AggregateTypeQuote, uuid.New(), uuid.New()),
	}
	require.NoError(t, bus.Publish(context.Background(), saleCreated(), quote))

	require.Len(t, writer.messages, 1)
	assert.Equal(t, trade.EventTypeSaleCreated, headerValue(writer.messages[0].Headers, HeaderEventType))

	require.NoError(t, relay.Close())
	assert.True(t, writer.closed)
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter(config.KafkaConfig{
		Brokers:      []string{"kafka-1:9092", "kafka-2:9092"},
		Topic:        "retail.events",
		WriteTimeout: 5 * time.Second,
	}, zap.NewNop())

	assert.Equal(t, "retail.events", w.Topic)
	assert.True(t, w.Async)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Equal(t, 5*time.Second, w.WriteTimeout)
	assert.NotNil(t, w.Completion)
}
