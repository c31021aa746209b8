// Package identity resolves the acting user for every mutation. The rest
// of the system consumes it as a capability: a Resolver either names an
// actor or the call fails unauthenticated before any write happens.
package identity

import (
	"context"

	"github.com/roach88/crewdeck/internal/fault"
)

// Resolver resolves the current actor for a call.
// Implemented by ContextResolver (production) and Static (tests, CLI).
type Resolver interface {
	// Resolve returns the acting user's id, or an unauthenticated fault
	// when no actor is attached to the call.
	Resolve(ctx context.Context) (string, error)
}

type actorKey struct{}

// WithActor returns a context carrying the given actor id.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ContextResolver reads the actor from the context, as attached by
// WithActor. This is the production resolver: whatever authentication
// layer fronts the system attaches the verified user id to the context.
type ContextResolver struct{}

// Resolve returns the actor carried by ctx.
func (ContextResolver) Resolve(ctx context.Context) (string, error) {
	id, _ := ctx.Value(actorKey{}).(string)
	if id == "" {
		return "", fault.Unauthenticated()
	}
	return id, nil
}

// Static always resolves to a fixed actor. Used by tests and by the CLI,
// where the operator names the actor with a flag. An empty id resolves
// to unauthenticated, which lets tests exercise that path too.
type Static struct {
	UserID string
}

// Resolve returns the fixed actor id.
func (s Static) Resolve(context.Context) (string, error) {
	if s.UserID == "" {
		return "", fault.Unauthenticated()
	}
	return s.UserID, nil
}
