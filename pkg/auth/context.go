package auth

import (
	"context"
	"net/http"

	"github.com/maestroapp/maestro/pkg/contextkeys"
)

// NewContext returns a copy of ctx carrying the AuthContext.
func NewContext(ctx context.Context, ac *AuthContext) context.Context {
	return contextkeys.WithAuth(ctx, ac)
}

// FromContext retrieves the AuthContext from ctx. The second return value is
// false when the request was not authenticated.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(contextkeys.AuthKey).(*AuthContext)
	if !ok || ac == nil {
		return nil, false
	}
	return ac, true
}

// FromRequest retrieves the AuthContext from an HTTP request's context.
func FromRequest(r *http.Request) (*AuthContext, bool) {
	return FromContext(r.Context())
}
