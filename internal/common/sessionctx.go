package common

import "context"

type ctxKey string

const sessionIDKey ctxKey = "session/id"
const sessionActorKey ctxKey = "session/actor"

// WithSession stores the session identifier and actor kind on the context.
func WithSession(ctx context.Context, id, actor string) context.Context {
	ctx = context.WithValue(ctx, sessionIDKey, id)
	return context.WithValue(ctx, sessionActorKey, actor)
}

// SessionID extracts the session identifier from the context if present.
func SessionID(ctx context.Context) (string, bool) {
	v := ctx.Value(sessionIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// SessionActor extracts the actor kind (vendedor, comprador, administrador)
// from the context if present.
func SessionActor(ctx context.Context) (string, bool) {
	v := ctx.Value(sessionActorKey)
	if v == nil {
		return "", false
	}
	actor, ok := v.(string)
	return actor, ok
}
