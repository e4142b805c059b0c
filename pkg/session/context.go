package session

import "context"

type handleContextKey struct{}

// WithHandle stores the request session in ctx.
func WithHandle(ctx context.Context, h *Handle) context.Context {
	return context.WithValue(ctx, handleContextKey{}, h)
}

// FromContext returns the request session installed by Manager.Middleware.
func FromContext(ctx context.Context) (*Handle, bool) {
	h, ok := ctx.Value(handleContextKey{}).(*Handle)
	return h, ok && h != nil
}
