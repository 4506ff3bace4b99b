package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/example/lab-scheduler/internal/application"
	"github.com/example/lab-scheduler/internal/logging"
)

var (
	errBadRequestBody   = echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	errInvalidBookingID = echo.NewHTTPError(http.StatusBadRequest, "invalid schedule id")
	errMissingToken     = echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
)

type errorResponse struct {
	ErrorCode string            `json:"errorCode,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// errorStatus maps service errors onto HTTP responses.
func errorStatus(err error) (int, errorResponse) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg, ok := httpErr.Message.(string)
		if !ok || msg == "" {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, errorResponse{Message: msg}
	}

	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, errorResponse{ErrorCode: "VALIDATION_FAILED", Message: "invalid input", Errors: vErr.FieldErrors}
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_INVALID_CREDENTIALS", Message: "invalid username or password"}
	case errors.Is(err, application.ErrTokenExpired):
		return http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_TOKEN_EXPIRED", Message: "session expired, please log in again"}
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_REQUIRED", Message: "authentication required"}
	case errors.Is(err, application.ErrPermissionDenied):
		return http.StatusForbidden, errorResponse{ErrorCode: "AUTH_FORBIDDEN", Message: "you are not allowed to perform this operation"}
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, errorResponse{Message: "resource not found"}
	case errors.Is(err, application.ErrAlreadyExists):
		return http.StatusConflict, errorResponse{Message: "resource already exists"}
	case errors.Is(err, context.Canceled):
		return 499, errorResponse{Message: "request canceled"}
	default:
		return http.StatusInternalServerError, errorResponse{Message: "internal server error"}
	}
}

// NewHTTPErrorHandler renders handler errors as JSON and logs them with the
// request logger.
func NewHTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	base := defaultLogger(logger)
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		ctx := c.Request().Context()
		status, body := errorStatus(err)

		log := logging.FromContext(ctx)
		if log == nil {
			log = base
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.ErrorContext(ctx, "request failed", "status", status, "error", err, "error_kind", application.ErrorKind(err))
		default:
			log.InfoContext(ctx, "request rejected", "status", status, "error", err, "error_kind", application.ErrorKind(err))
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		if werr := c.JSON(status, body); werr != nil {
			log.ErrorContext(ctx, "failed to encode error response", "error", werr)
		}
	}
}
