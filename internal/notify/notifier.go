// Package notify delivers operator-facing confirmation messages after loan
// operations. The admin frontend subscribes to the channel and surfaces
// them as toasts.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	platformredis "libris/internal/platform/redis"
)

// Confirmation texts shown after successful operations.
const (
	MsgLoanReturned   = "El libro ha sido marcado como devuelto correctamente."
	MsgPenaltyApplied = "Penalización aplicada correctamente."
	MsgPolicySaved    = "Configuración guardada correctamente."
	MsgLoanCreated    = "Préstamo registrado correctamente."
)

// Message is one notification payload.
type Message struct {
	Text   string    `json:"text"`
	LoanID string    `json:"loanId,omitempty"`
	SentAt time.Time `json:"sentAt"`
}

// Notifier delivers messages. Delivery failures must not fail the loan
// operation that triggered them; callers log and continue.
type Notifier interface {
	Publish(ctx context.Context, msg Message) error
}

// LogNotifier is the fallback sink when Redis is not configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Publish(ctx context.Context, msg Message) error {
	n.logger.InfoContext(ctx, "notification",
		slog.String("text", msg.Text),
		slog.String("loan_id", msg.LoanID),
	)
	return nil
}

// Channel carries notifications to frontend subscribers.
const Channel = "libris:notifications"

// RedisNotifier publishes messages on a Redis pub/sub channel.
type RedisNotifier struct {
	client *platformredis.Client
}

func NewRedisNotifier(client *platformredis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Publish(ctx context.Context, msg Message) error {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := n.client.Client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
