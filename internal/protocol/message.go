package protocol

import (
	"time"

	"github.com/google/uuid"
)

// Record is one of the control records: Text, FileMeta or FileEnd.
type Record interface {
	Type() RecordType
}

type FileInfo struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"type"`
}

type Text struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

func (Text) Type() RecordType { return TypeText }

// Time returns the record timestamp, which travels as Unix milliseconds.
func (t Text) Time() time.Time {
	return time.UnixMilli(t.Timestamp)
}

func NewText(content string, now time.Time) Text {
	return Text{
		ID:        uuid.NewString(),
		Content:   content,
		Timestamp: now.UnixMilli(),
	}
}

type FileMeta struct {
	Payload FileInfo `json:"payload"`
}

func (FileMeta) Type() RecordType { return TypeFileMeta }

type FileEnd struct{}

func (FileEnd) Type() RecordType { return TypeFileEnd }

// Unit is a single frame as it crosses the data channel.
type Unit struct {
	IsString bool
	Data     []byte
}

// Event is the decoded form of a Unit. The set is closed: TextEvent,
// BeginFileEvent, EndFileEvent and ChunkEvent.
type Event interface {
	event()
}

// TextEvent carries a text message from the remote peer. Fallback is set
// when the frame was not a control record and its raw text became the content.
type TextEvent struct {
	Record   Text
	Fallback bool
}

type BeginFileEvent struct {
	Info FileInfo
}

type EndFileEvent struct{}

type ChunkEvent struct {
	Data []byte
}

func (TextEvent) event()      {}
func (BeginFileEvent) event() {}
func (EndFileEvent) event()   {}
func (ChunkEvent) event()     {}
