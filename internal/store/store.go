// Package store archives session messages in SQLite.
package store

import (
	"context"

	"github.com/rudransh-shrivastava/pairlink/internal/msglog"
	"gorm.io/gorm"
)

var _ MessageRepository = (*MessageStore)(nil)

type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (ms *MessageStore) Record(ctx context.Context, sessionID string, m msglog.Message) error {
	row := fromLog(sessionID, m)
	return ms.db.WithContext(ctx).Create(&row).Error
}

func (ms *MessageStore) ListBySession(ctx context.Context, sessionID string) ([]Message, error) {
	var rows []Message
	err := ms.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&rows).Error
	return rows, err
}

// ListRecent returns the last limit entries across all attempts, oldest
// first. A limit of zero or less returns everything.
func (ms *MessageStore) ListRecent(ctx context.Context, limit int) ([]Message, error) {
	var rows []Message
	q := ms.db.WithContext(ctx).Order("seq DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (ms *MessageStore) Sessions(ctx context.Context) ([]SessionSummary, error) {
	var out []SessionSummary
	err := ms.db.WithContext(ctx).
		Model(&Message{}).
		Select("session_id, COUNT(*) AS messages, MIN(timestamp) AS first_at, MAX(timestamp) AS last_at").
		Group("session_id").
		Order("MIN(seq) ASC").
		Scan(&out).Error
	return out, err
}
