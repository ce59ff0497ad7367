package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

type Codec struct {
	now func() time.Time
}

func NewCodec() *Codec {
	return &Codec{now: time.Now}
}

// Encode serializes a control record into a string frame.
func (c *Codec) Encode(r Record) (Unit, error) {
	var v any
	switch rec := r.(type) {
	case Text:
		v = struct {
			Type RecordType `json:"type"`
			Text
		}{TypeText, rec}
	case FileMeta:
		v = struct {
			Type RecordType `json:"type"`
			FileMeta
		}{TypeFileMeta, rec}
	case FileEnd:
		v = struct {
			Type RecordType `json:"type"`
		}{TypeFileEnd}
	default:
		return Unit{}, fmt.Errorf("unsupported record %T", r)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Unit{}, fmt.Errorf("encoding %s record: %w", r.Type(), err)
	}
	return Unit{IsString: true, Data: data}, nil
}

// EncodeChunk wraps raw file bytes as a binary frame. Chunks carry no header.
func (c *Codec) EncodeChunk(data []byte) Unit {
	return Unit{Data: data}
}

// Decode never fails. Binary frames become chunks; string frames that are
// not a known control record become a fallback text message.
func (c *Codec) Decode(u Unit) Event {
	if !u.IsString {
		return ChunkEvent{Data: u.Data}
	}

	var head struct {
		Type RecordType `json:"type"`
	}
	if err := json.Unmarshal(u.Data, &head); err != nil {
		return c.fallback(u.Data)
	}

	switch head.Type {
	case TypeText:
		var t Text
		if err := json.Unmarshal(u.Data, &t); err != nil {
			return c.fallback(u.Data)
		}
		if t.Timestamp == 0 {
			t.Timestamp = c.now().UnixMilli()
		}
		return TextEvent{Record: t}
	case TypeFileMeta:
		var m struct {
			Payload *FileInfo `json:"payload"`
		}
		if err := json.Unmarshal(u.Data, &m); err != nil || m.Payload == nil {
			return c.fallback(u.Data)
		}
		return BeginFileEvent{Info: *m.Payload}
	case TypeFileEnd:
		return EndFileEvent{}
	default:
		return c.fallback(u.Data)
	}
}

func (c *Codec) fallback(data []byte) Event {
	return TextEvent{
		Record: Text{
			Content:   string(data),
			Timestamp: c.now().UnixMilli(),
		},
		Fallback: true,
	}
}
