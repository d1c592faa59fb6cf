// Package actor identifies the user or system performing an action so that
// payroll records can carry who created and who approved them.
package actor

import "context"

const systemID = "00000000-0000-0000-0000-000000000000"

// Actor represents the entity performing an action in the system.
type Actor struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	TenantID    string   `json:"tenant_id"`
	Permissions []string `json:"permissions,omitempty"`
}

type contextKey struct{}

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, _ := ctx.Value(contextKey{}).(*Actor)
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	return a == nil || a.ID == systemID
}

// IDOrNil returns a pointer to the actor ID for nullable audit columns.
func (a *Actor) IDOrNil() *string {
	if a.IsSystem() {
		return nil
	}
	id := a.ID
	return &id
}
