package models

import "context"

type actorContextKey struct{}

// Actor identifies who is performing an operation and from where
type Actor struct {
	UserId    string
	Email     string
	Role      Role
	IpAddress string
}

// WithActor attaches the acting principal to a context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor retrieves the acting principal from context, or nil if absent.
func GetActor(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}
