package http

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/example/lab-scheduler/internal/access"
	"github.com/example/lab-scheduler/internal/logging"
)

// TokenValidator resolves a bearer token to the principal it was issued to.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (access.Principal, error)
}

// RequireToken rejects requests without a valid bearer token and attaches the
// caller's principal to the request context.
func RequireToken(validator TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return errMissingToken
			}

			req := c.Request()
			p, err := validator.ValidateToken(req.Context(), token)
			if err != nil {
				return err
			}

			ctx := ContextWithPrincipal(req.Context(), p)
			if logger := logging.FromContext(ctx); logger != nil {
				ctx = logging.ContextWithLogger(ctx, logger.With("principal_id", p.UserID, "role", p.Role))
			}
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequestLogger tags each request with an id, attaches a request scoped logger
// to the context and logs the outcome.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	base = defaultLogger(base)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := strings.TrimSpace(req.Header.Get(echo.HeaderXRequestID))
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			logger := base.With(
				"request_id", id,
				"method", req.Method,
				"path", req.URL.Path,
			)
			ctx := logging.ContextWithLogger(req.Context(), logger)
			c.SetRequest(req.WithContext(ctx))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.InfoContext(ctx, "request completed",
				"status", c.Response().Status,
				"duration", time.Since(start),
			)
			return nil
		}
	}
}
