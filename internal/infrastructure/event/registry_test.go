package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newTestHandler()
	registry.Register(handler, "SaleCreated", "InvoiceIssued")

	assert.Len(t, registry.GetHandlers("SaleCreated"), 1)
	assert.Len(t, registry.GetHandlers("InvoiceIssued"), 1)
	assert.Empty(t, registry.GetHandlers("QuoteCreated"))
}

func TestHandlerRegistry_WildcardComesLast(t *testing.T) {
	registry := NewHandlerRegistry()
	wildcard := newTestHandler()
	typed := newTestHandler()
	registry.Register(wildcard)
	registry.Register(typed, "SaleCreated")

	handlers := registry.GetHandlers("SaleCreated")
	if assert.Len(t, handlers, 2) {
		assert.Same(t, typed, handlers[0])
		assert.Same(t, wildcard, handlers[1])
	}
	assert.Len(t, registry.GetHandlers("Anything"), 1)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	keep := newTestHandler()
	drop := newTestHandler()
	registry.Register(keep, "SaleCreated")
	registry.Register(drop, "SaleCreated", "QuoteCreated")
	registry.Register(drop)

	registry.Unregister(drop)

	handlers := registry.GetHandlers("SaleCreated")
	if assert.Len(t, handlers, 1) {
		assert.Same(t, keep, handlers[0])
	}
	assert.Empty(t, registry.GetHandlers("QuoteCreated"))
	_, stillMapped := registry.handlers["QuoteCreated"]
	assert.False(t, stillMapped)
}
