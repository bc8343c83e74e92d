package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/identity"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuthorizer_Authorize(t *testing.T) {
	a := NewAuthorizer(identity.DefaultPolicy(), zap.NewNop())
	ctx := context.Background()

	seller := identity.Actor{UserID: uuid.New(), Name: "Ana", Role: identity.RoleSeller}
	assert.NoError(t, a.Authorize(ctx, seller, identity.ActionSalesCreate))

	err := a.Authorize(ctx, seller, identity.ActionQuotesExpire)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrAuthorizationDenied))

	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "seller", domainErr.Details["role"])
	assert.Equal(t, "quotes:expire", domainErr.Details["action"])
}

func TestAuthorizer_UnknownRole(t *testing.T) {
	a := NewAuthorizer(identity.DefaultPolicy(), nil)
	err := a.Authorize(context.Background(), identity.Actor{Role: identity.Role("")}, identity.ActionSalesRead)
	assert.True(t, errors.Is(err, shared.ErrAuthorizationDenied))
}
