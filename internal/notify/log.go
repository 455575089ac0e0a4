package notify

import (
	"context"
	"log/slog"
)

// LogNotifier is used when no redis is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Send(_ context.Context, m Message) error {
	l.log.Info("notification", "kind", m.Kind, "user_id", m.UserID, "text", m.Text)
	return nil
}
