// Package identity holds the authorization model: who is acting and which
// actions each role may perform.
package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Action is a resource:verb permission code
type Action string

const (
	ActionSalesCreate   Action = "sales:create"
	ActionSalesRead     Action = "sales:read"
	ActionQuotesCreate  Action = "quotes:create"
	ActionQuotesRead    Action = "quotes:read"
	ActionQuotesConvert Action = "quotes:convert"
	ActionQuotesExpire  Action = "quotes:expire"
	ActionInvoicesIssue Action = "invoices:issue"
	ActionInvoicesRead  Action = "invoices:read"
	ActionStockRead     Action = "stock:read"
	actionWildcard      Action = "*"
)

// Role is a named set of actions
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSeller     Role = "seller"
	RoleWarehouse  Role = "warehouse"
	RoleAccountant Role = "accountant"
)

// ParseRole normalizes a role name from a token claim
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// Actor is the authenticated user behind a request
type Actor struct {
	UserID uuid.UUID
	Name   string
	Role   Role
}

// Policy maps roles to their allowed actions. It is plain data so that it can
// be injected and replaced in tests.
type Policy map[Role]map[Action]struct{}

// NewPolicy builds a policy from role → action lists
func NewPolicy(grants map[Role][]Action) Policy {
	p := make(Policy, len(grants))
	for role, actions := range grants {
		set := make(map[Action]struct{}, len(actions))
		for _, a := range actions {
			set[a] = struct{}{}
		}
		p[role] = set
	}
	return p
}

// DefaultPolicy is the built-in role table
func DefaultPolicy() Policy {
	return NewPolicy(map[Role][]Action{
		RoleAdmin: {actionWildcard},
		RoleSeller: {
			ActionSalesCreate, ActionSalesRead,
			ActionQuotesCreate, ActionQuotesRead, ActionQuotesConvert,
			ActionInvoicesIssue,
		},
		RoleWarehouse: {ActionStockRead},
		RoleAccountant: {
			ActionSalesRead, ActionQuotesRead,
			ActionInvoicesIssue, ActionInvoicesRead,
		},
	})
}

// Allows reports whether the role may perform the action. Unknown roles are denied.
func (p Policy) Allows(role Role, action Action) bool {
	actions, ok := p[role]
	if !ok {
		return false
	}
	if _, ok := actions[actionWildcard]; ok {
		return true
	}
	_, ok = actions[action]
	return ok
}

// Gate authorizes an actor for an action before a use case runs
type Gate interface {
	Authorize(ctx context.Context, actor Actor, action Action) error
}
