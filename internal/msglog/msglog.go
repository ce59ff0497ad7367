// Package msglog holds the ordered record of what was said and sent during a
// session attempt.
package msglog

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rudransh-shrivastava/pairlink/internal/protocol"
)

type Kind string

const (
	KindText Kind = "text"
	KindFile Kind = "file"
)

type Origin string

const (
	Local  Origin = "local"
	Remote Origin = "remote"
)

type Message struct {
	ID        string
	Kind      Kind
	Sender    Origin
	Timestamp time.Time

	// Text entries.
	Content string

	// File entries.
	File   protocol.FileInfo
	Handle string
	Digest string
}

func NewText(id string, sender Origin, content string, ts time.Time) Message {
	return Message{ID: id, Kind: KindText, Sender: sender, Content: content, Timestamp: ts}
}

func NewFile(sender Origin, info protocol.FileInfo, handle, digest string, ts time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Kind:      KindFile,
		Sender:    sender,
		File:      info,
		Handle:    handle,
		Digest:    digest,
		Timestamp: ts,
	}
}

// Log is append-only and keeps insertion order. IDs are unique within a log.
type Log struct {
	mu      sync.RWMutex
	entries []Message
	ids     map[string]struct{}
}

func New() *Log {
	return &Log{ids: make(map[string]struct{})}
}

// Append adds m and returns the stored entry. An empty or already used ID is
// replaced with a fresh one.
func (l *Log) Append(m Message) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.ids[m.ID]; m.ID == "" || dup {
		m.ID = uuid.NewString()
	}
	l.ids[m.ID] = struct{}{}
	l.entries = append(l.entries, m)
	return m
}

// Entries returns a copy of the log.
func (l *Log) Entries() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.ids = make(map[string]struct{})
}
