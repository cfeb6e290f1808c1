package middleware

import (
	"context"
	"time"
)

type clientContextKey struct{}

// ClientContext identifies the authenticated caller of a request.
type ClientContext struct {
	// ClientID names the key holder; it is the per-client rate limit bucket.
	ClientID string

	// KeyID identifies which configured key matched, for audit logs.
	KeyID string

	AuthTime time.Time
}

// GetClientContext extracts the authenticated client from ctx.
func GetClientContext(ctx context.Context) (ClientContext, bool) {
	client, ok := ctx.Value(clientContextKey{}).(ClientContext)

	return client, ok
}

// SetClientContext returns a copy of ctx carrying client.
func SetClientContext(ctx context.Context, client ClientContext) context.Context {
	return context.WithValue(ctx, clientContextKey{}, client)
}
