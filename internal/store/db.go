package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rudransh-shrivastava/pairlink/internal/msglog"
	"github.com/rudransh-shrivastava/pairlink/internal/protocol"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Message is one archived log entry. Seq preserves insertion order across
// every attempt.
type Message struct {
	Seq       uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"index;not null"`
	MessageID string `gorm:"index;not null"`
	Kind      string `gorm:"not null"`
	Sender    string `gorm:"not null"`
	Content   string
	FileName  string
	FileSize  int64
	MimeType  string
	Handle    string
	Digest    string
	Timestamp int64
	CreatedAt int64 `gorm:"autoCreateTime"`
}

// SessionSummary aggregates the archived entries of one attempt.
type SessionSummary struct {
	SessionID string
	Messages  int64
	FirstAt   int64
	LastAt    int64
}

// Open opens or creates the archive at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*gorm.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	// ":memory:" is per connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Message{}); err != nil {
		return nil, fmt.Errorf("failed to migrate archive: %w", err)
	}
	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func fromLog(sessionID string, m msglog.Message) Message {
	return Message{
		SessionID: sessionID,
		MessageID: m.ID,
		Kind:      string(m.Kind),
		Sender:    string(m.Sender),
		Content:   m.Content,
		FileName:  m.File.Name,
		FileSize:  m.File.Size,
		MimeType:  m.File.MimeType,
		Handle:    m.Handle,
		Digest:    m.Digest,
		Timestamp: m.Timestamp.UnixMilli(),
	}
}

// ToLog converts an archived row back into a log entry.
func (m Message) ToLog() msglog.Message {
	return msglog.Message{
		ID:        m.MessageID,
		Kind:      msglog.Kind(m.Kind),
		Sender:    msglog.Origin(m.Sender),
		Timestamp: time.UnixMilli(m.Timestamp),
		Content:   m.Content,
		File:      protocol.FileInfo{Name: m.FileName, Size: m.FileSize, MimeType: m.MimeType},
		Handle:    m.Handle,
		Digest:    m.Digest,
	}
}
