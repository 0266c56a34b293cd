// Package notify delivers user-facing cart messages.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	domcart "example.com/shoecart/internal/domain/cart"
)

const LevelError = "error"

type Notification struct {
	Session string    `json:"session"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

func newNotification(ctx context.Context, message string, now time.Time) Notification {
	return Notification{
		Session: domcart.SessionFromContext(ctx),
		Level:   LevelError,
		Message: message,
		At:      now.UTC(),
	}
}

// Logger writes each notification as a zerolog warn line.
type Logger struct {
	log zerolog.Logger
}

func NewLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log.With().Str("component", "notify").Logger()}
}

func (l *Logger) Error(ctx context.Context, message string) {
	l.log.Warn().
		Str("session", domcart.SessionFromContext(ctx)).
		Msg(message)
}

// Multi fans a notification out to every notifier.
type Multi []domcart.Notifier

func (m Multi) Error(ctx context.Context, message string) {
	for _, n := range m {
		if n != nil {
			n.Error(ctx, message)
		}
	}
}
