package http

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/example/lab-scheduler/internal/access"
)

type contextKey string

const principalContextKey contextKey = "principal"

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal access.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (access.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(access.Principal)
	return principal, ok
}

// principal returns the caller attached by RequireToken. Routes mounted without
// the middleware see the zero principal, which the access policy rejects.
func principal(c echo.Context) access.Principal {
	p, _ := PrincipalFromContext(c.Request().Context())
	return p
}
