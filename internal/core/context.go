package core

import "context"

type contextKey struct{}

// RequestMeta describes who is calling and from where. The HTTP layer
// stores it on the request context and audit entries pick it up.
type RequestMeta struct {
	ActorID   string
	IPAddress string
	UserAgent string
}

// WithRequestMeta returns a copy of ctx carrying meta.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, contextKey{}, meta)
}

// RequestMetaFrom returns the metadata stored on ctx, or the zero value.
func RequestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(contextKey{}).(RequestMeta)
	return meta
}
