package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/example/lab-scheduler/internal/application"
)

type authService interface {
	Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error)
}

// AuthHandler issues bearer tokens.
type AuthHandler struct {
	service authService
	logger  *slog.Logger
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: defaultLogger(logger)}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      userDTO   `json:"user"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return errBadRequestBody
	}

	ctx := c.Request().Context()
	result, err := h.service.Authenticate(ctx, application.AuthenticateParams{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	handlerLogger(ctx, h.logger, "AuthHandler", "Login", "user_id", result.User.ID).InfoContext(ctx, "user authenticated")
	return c.JSON(http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      toUserDTO(result.User),
	})
}
