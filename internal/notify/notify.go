// Package notify delivers user-facing expiry notifications.
package notify

import (
	"context"
	"log/slog"
)

// Notifier is the platform that shows notifications to the user.
// RequestPermission reports whether notifications may be shown at all; a
// denial is not an error.
type Notifier interface {
	RequestPermission(ctx context.Context) (bool, error)
	Show(ctx context.Context, title, body string) error
}

// LogNotifier writes notifications to the application log. It is always
// permitted.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) RequestPermission(context.Context) (bool, error) {
	return true, nil
}

func (n *LogNotifier) Show(_ context.Context, title, body string) error {
	n.logger.Info("notification", "title", title, "body", body)
	return nil
}
