package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/lab-scheduler/internal/access"
)

// NotificationService lets administrators push messages to staff devices.
type NotificationService struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewNotificationService wires the notification service.
func NewNotificationService(notifier Notifier, logger *slog.Logger) *NotificationService {
	return &NotificationService{notifier: notifier, logger: defaultLogger(logger)}
}

// Broadcast sends a message to every subscribed device.
func (s *NotificationService) Broadcast(ctx context.Context, principal access.Principal, title, body string) error {
	if s == nil || s.notifier == nil {
		return fmt.Errorf("notifier not configured")
	}
	if !access.CanBroadcast(principal) {
		return ErrPermissionDenied
	}

	title, body = strings.TrimSpace(title), strings.TrimSpace(body)
	vErr := &ValidationError{}
	if title == "" {
		vErr.add("title", "is required")
	}
	if body == "" {
		vErr.add("message", "is required")
	}
	if vErr.HasErrors() {
		return vErr
	}

	logger := serviceLogger(ctx, s.logger, "NotificationService", "Broadcast", "principal_id", principal.UserID)
	if err := s.notifier.NotifyAll(ctx, title, body); err != nil {
		logger.ErrorContext(ctx, "broadcast failed", "error", err)
		return fmt.Errorf("broadcast: %w", err)
	}
	logger.InfoContext(ctx, "broadcast queued")
	return nil
}

// SendTest sends the fixed test message to one user's devices.
func (s *NotificationService) SendTest(ctx context.Context, principal access.Principal, userID string) error {
	if s == nil || s.notifier == nil {
		return fmt.Errorf("notifier not configured")
	}
	if !access.CanBroadcast(principal) {
		return ErrPermissionDenied
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return newValidationError("userId", "is required")
	}

	logger := serviceLogger(ctx, s.logger, "NotificationService", "SendTest", "principal_id", principal.UserID, "user_id", userID)
	if err := s.notifier.NotifyUser(ctx, userID, "Test notification", "This is a test notification from the lab scheduler"); err != nil {
		logger.ErrorContext(ctx, "test notification failed", "error", err)
		return fmt.Errorf("send test: %w", err)
	}
	logger.InfoContext(ctx, "test notification queued")
	return nil
}
