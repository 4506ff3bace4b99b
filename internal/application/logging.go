package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/lab-scheduler/internal/logging"
)

var defaultLogger = logging.OrDefault

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, base, "service", serviceName, operation, attrs...)
}

var errorKinds = []struct {
	target error
	kind   string
}{
	{ErrPermissionDenied, "permission_denied"},
	{ErrUnauthorized, "unauthorized"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyExists, "already_exists"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrTokenExpired, "token_expired"},
	{ErrRepository, "repository"},
	{context.Canceled, "canceled"},
	{context.DeadlineExceeded, "canceled"},
}

// ErrorKind labels err for the error_kind log attribute.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	return "unexpected"
}
