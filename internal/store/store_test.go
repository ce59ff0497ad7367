package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rudransh-shrivastava/pairlink/internal/msglog"
	"github.com/rudransh-shrivastava/pairlink/internal/protocol"
	"github.com/rudransh-shrivastava/pairlink/internal/store"
)

func setupTestDB(t *testing.T) *store.MessageStore {
	t.Helper()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(db) })
	return store.NewMessageStore(db)
}

func TestMessageStore_RecordAndList(t *testing.T) {
	ms := setupTestDB(t)
	ctx := context.Background()
	now := time.UnixMilli(1700000000000)

	entries := []msglog.Message{
		msglog.NewText("a", msglog.Local, "hello", now),
		msglog.NewFile(msglog.Remote, protocol.FileInfo{Name: "x.png", Size: 10, MimeType: "image/png"}, "/tmp/x.png", "abc", now.Add(time.Second)),
		msglog.NewText("b", msglog.Remote, "bye", now.Add(-time.Hour)),
	}
	for _, m := range entries {
		if err := ms.Record(ctx, "s1", m); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	rows, err := ms.ListBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("ListBySession failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, row := range rows {
		got := row.ToLog()
		if got.ID != entries[i].ID || got.Kind != entries[i].Kind || got.Sender != entries[i].Sender {
			t.Errorf("row %d out of insertion order: %+v", i, got)
		}
		if !got.Timestamp.Equal(entries[i].Timestamp) {
			t.Errorf("row %d timestamp %v, want %v", i, got.Timestamp, entries[i].Timestamp)
		}
	}

	file := rows[1].ToLog()
	if file.File != entries[1].File || file.Handle != "/tmp/x.png" || file.Digest != "abc" {
		t.Errorf("file entry did not round trip: %+v", file)
	}
}

func TestMessageStore_SeparatesSessions(t *testing.T) {
	ms := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	_ = ms.Record(ctx, "s1", msglog.NewText("1", msglog.Local, "one", now))
	_ = ms.Record(ctx, "s2", msglog.NewText("2", msglog.Local, "two", now))
	_ = ms.Record(ctx, "s1", msglog.NewText("3", msglog.Remote, "three", now))

	rows, err := ms.ListBySession(ctx, "s2")
	if err != nil {
		t.Fatalf("ListBySession failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Content != "two" {
		t.Errorf("unexpected rows %+v", rows)
	}

	sessions, err := ms.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].SessionID != "s1" || sessions[0].Messages != 2 {
		t.Errorf("unexpected first session %+v", sessions[0])
	}
}

func TestMessageStore_ListRecent(t *testing.T) {
	ms := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	for _, c := range []string{"a", "b", "c", "d"} {
		_ = ms.Record(ctx, "s", msglog.NewText(c, msglog.Local, c, now))
	}

	rows, err := ms.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(rows) != 2 || rows[0].Content != "c" || rows[1].Content != "d" {
		t.Errorf("expected [c d], got %+v", rows)
	}

	all, _ := ms.ListRecent(ctx, 0)
	if len(all) != 4 {
		t.Errorf("expected all 4 rows, got %d", len(all))
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	db, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ms := store.NewMessageStore(db)
	if err := ms.Record(context.Background(), "s", msglog.NewText("x", msglog.Local, "persisted", time.Now())); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	_ = store.Close(db)

	db, err = store.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(db) })

	rows, err := store.NewMessageStore(db).ListBySession(context.Background(), "s")
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected persisted row, got %d rows, err %v", len(rows), err)
	}
}
