package identity

import (
	"context"

	"github.com/retailcore/backoffice/internal/domain/identity"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// Authorizer checks an actor's role against the injected policy before a
// use case runs. A denial has no side effects beyond a log line.
type Authorizer struct {
	policy identity.Policy
	logger *zap.Logger
}

// NewAuthorizer creates a new Authorizer
func NewAuthorizer(policy identity.Policy, logger *zap.Logger) *Authorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authorizer{policy: policy, logger: logger}
}

// Authorize returns AUTHORIZATION_DENIED when the actor's role lacks the action
func (a *Authorizer) Authorize(_ context.Context, actor identity.Actor, action identity.Action) error {
	if a.policy.Allows(actor.Role, action) {
		return nil
	}
	a.logger.Warn("Authorization denied",
		zap.String("user_id", actor.UserID.String()),
		zap.String("role", string(actor.Role)),
		zap.String("action", string(action)),
	)
	return shared.NewAuthorizationDeniedError(string(actor.Role), string(action))
}

var _ identity.Gate = (*Authorizer)(nil)
