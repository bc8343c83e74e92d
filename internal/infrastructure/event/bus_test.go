package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), uuid.New()),
		Data:            "test data",
	}
}

type testHandler struct {
	eventTypes []string
	err        error
	panicWith  any

	mu      sync.Mutex
	handled []shared.DomainEvent
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_PublishToSubscribedType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	sales := newTestHandler("SaleCreated")
	invoices := newTestHandler("InvoiceIssued")
	bus.Subscribe(sales)
	bus.Subscribe(invoices)

	event := newTestEvent("SaleCreated")
	require.NoError(t, bus.Publish(context.Background(), event))

	assert.Equal(t, []shared.DomainEvent{event}, sales.getHandled())
	assert.Empty(t, invoices.getHandled())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("SaleCreated")
	bus.Subscribe(handler, "QuoteCreated")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCreated"), newTestEvent("QuoteCreated")))

	handled := handler.getHandled()
	require.Len(t, handled, 1)
	assert.Equal(t, "QuoteCreated", handled[0].EventType())
}

func TestInMemoryEventBus_WildcardReceivesEverything(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	all := newTestHandler()
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCreated"), newTestEvent("InvoiceIssued")))
	assert.Len(t, all.getHandled(), 2)
}

func TestInMemoryEventBus_FailingHandlerDoesNotStopOthers(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newTestHandler("SaleCreated")
	failing.err = errors.New("broker down")
	panicking := newTestHandler("SaleCreated")
	panicking.panicWith = "boom"
	healthy := newTestHandler("SaleCreated")

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("SaleCreated"))
	require.NoError(t, err)

	assert.Len(t, healthy.getHandled(), 1)
	assert.Equal(t, 2, logs.FilterMessage("Event handler failed").Len())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("SaleCreated")
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCreated")))
	assert.Empty(t, handler.getHandled())
}

func TestInMemoryEventBus_ConcurrentPublish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("SaleCreated")
	bus.Subscribe(handler)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.Publish(context.Background(), newTestEvent("SaleCreated"))
		}()
	}
	wg.Wait()

	assert.Len(t, handler.getHandled(), 50)
}
