package middleware

import (
	"context"
)

type contextKey string

const (
	// ContextKeyClient holds a non-secret label of the authenticated API caller.
	ContextKeyClient contextKey = "api_client"
)

// ClientFromContext returns the API caller label set by APIKey.
func ClientFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyClient).(string)
	return v, ok
}
