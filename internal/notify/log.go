package notify

import (
	"context"
	"log/slog"

	"sortec/entity"
	"sortec/lib/sl"
)

// Log only records intents; used when no transport is configured.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log {
	return &Log{log: log.With(sl.Module("notify.log"))}
}

func (l *Log) Send(_ context.Context, intent entity.NotificationIntent) error {
	l.log.With(
		slog.String("kind", string(intent.Kind)),
		slog.String("recipient", intent.Recipient),
		slog.String("registration_id", intent.Payload.RegistrationId),
		slog.String("contest_code", intent.Payload.ContestCode),
	).Info("notification")
	return nil
}
