package git

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{ name string }

var backendContextKey = &contextKey{"git-backend"}

// ContextWithBackend adds a Backend to a context.Context.
// Use BackendFromContext to retrieve it.
//
// Example:
//
//	b, _ := git.Open(git.KindCLI, ".")
//	ctx := git.ContextWithBackend(context.Background(), b)
func ContextWithBackend(ctx context.Context, b Backend) context.Context {
	return context.WithValue(ctx, backendContextKey, b)
}

// BackendFromContext retrieves a Backend from a context.Context.
// Returns nil if none is present.
func BackendFromContext(ctx context.Context) Backend {
	if b, ok := ctx.Value(backendContextKey).(Backend); ok {
		return b
	}
	return nil
}

// MustBackendFromContext retrieves a Backend or panics.
// Use in code where a backend is required and missing is a programming error.
func MustBackendFromContext(ctx context.Context) Backend {
	b := BackendFromContext(ctx)
	if b == nil {
		panic("git.Backend not found in context")
	}
	return b
}
