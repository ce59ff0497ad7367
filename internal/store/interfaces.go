package store

import (
	"context"

	"github.com/rudransh-shrivastava/pairlink/internal/msglog"
)

// MessageRepository defines archive operations.
type MessageRepository interface {
	Record(ctx context.Context, sessionID string, m msglog.Message) error
	ListBySession(ctx context.Context, sessionID string) ([]Message, error)
	ListRecent(ctx context.Context, limit int) ([]Message, error)
	Sessions(ctx context.Context) ([]SessionSummary, error)
}
