package domain

import "context"

type requestIDKey struct{}

// WithRequestID stores the inbound request id in the context. Upstream
// clients forward it as client-request-id so Graph and ARM logs correlate.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext extracts the request id from the context.
// Returns an empty string if none is present.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
