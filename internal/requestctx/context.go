// Package requestctx carries the authenticated caller through request
// contexts.
package requestctx

import "context"

type actorKey struct{}

// Actor is the identity behind an authenticated request.
type Actor struct {
	ID   string
	Name string
	Role string
}

// Label is the value recorded in audit logs for the actor.
func (a Actor) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// WithActor stores the actor on the context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored on ctx, if any.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
