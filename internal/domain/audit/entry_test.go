package audit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	actor := uuid.New()
	sale := uuid.New()

	e := NewEntry(actor, "Ana", ActionCreate, ModuleSales, "Sale for $121").WithResource(sale)

	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, actor, e.ActorID)
	assert.Equal(t, ModuleSales, e.Module)
	require.NotNil(t, e.ResourceID)
	assert.Equal(t, sale, *e.ResourceID)
	assert.False(t, e.OccurredAt.IsZero())
}
