package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/example/lab-scheduler/internal/access"
)

type notificationService interface {
	Broadcast(ctx context.Context, principal access.Principal, title, body string) error
	SendTest(ctx context.Context, principal access.Principal, userID string) error
}

// PushHandler lets administrators send notifications to staff devices.
type PushHandler struct {
	service notificationService
}

func NewPushHandler(service notificationService) *PushHandler {
	return &PushHandler{service: service}
}

type sendAllRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type sendTestRequest struct {
	UserID string `json:"userId"`
}

func (h *PushHandler) SendAll(c echo.Context) error {
	var req sendAllRequest
	if err := c.Bind(&req); err != nil {
		return errBadRequestBody
	}
	if err := h.service.Broadcast(c.Request().Context(), principal(c), req.Title, req.Message); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, messageResponse{Message: "notification queued"})
}

func (h *PushHandler) SendTest(c echo.Context) error {
	var req sendTestRequest
	if err := c.Bind(&req); err != nil {
		return errBadRequestBody
	}
	if err := h.service.SendTest(c.Request().Context(), principal(c), req.UserID); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, messageResponse{Message: "test notification queued"})
}
