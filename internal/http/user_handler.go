package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/example/lab-scheduler/internal/access"
	"github.com/example/lab-scheduler/internal/application"
)

type userService interface {
	RegisterUser(ctx context.Context, principal access.Principal, input application.UserInput) (application.User, error)
	ListUsers(ctx context.Context, principal access.Principal) ([]application.User, error)
	CurrentUser(ctx context.Context, principal access.Principal) (application.User, error)
}

// UserHandler serves administrator managed accounts.
type UserHandler struct {
	service userService
	logger  *slog.Logger
}

func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: service, logger: defaultLogger(logger)}
}

type userDTO struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"displayName"`
	Role          string    `json:"role"`
	AssignedClass *string   `json:"assignedClass"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toUserDTO(u application.User) userDTO {
	dto := userDTO{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
	}
	if u.AssignedClass != "" {
		class := u.AssignedClass
		dto.AssignedClass = &class
	}
	return dto
}

type createUserRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	DisplayName     string `json:"displayName"`
	Role            string `json:"role"`
	AssignedClass   string `json:"assignedClass"`
}

func (h *UserHandler) List(c echo.Context) error {
	users, err := h.service.ListUsers(c.Request().Context(), principal(c))
	if err != nil {
		return err
	}
	out := make([]userDTO, len(users))
	for i, u := range users {
		out[i] = toUserDTO(u)
	}
	return c.JSON(http.StatusOK, out)
}

// Me returns the account of the authenticated caller.
func (h *UserHandler) Me(c echo.Context) error {
	user, err := h.service.CurrentUser(c.Request().Context(), principal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserDTO(user))
}

func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return errBadRequestBody
	}

	ctx := c.Request().Context()
	user, err := h.service.RegisterUser(ctx, principal(c), application.UserInput{
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		DisplayName:     req.DisplayName,
		Role:            req.Role,
		AssignedClass:   req.AssignedClass,
	})
	if err != nil {
		return err
	}

	handlerLogger(ctx, h.logger, "UserHandler", "Create", "user_id", user.ID).InfoContext(ctx, "user created")
	return c.JSON(http.StatusCreated, toUserDTO(user))
}
