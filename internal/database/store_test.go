package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/tgstats/internal/chat"
)

func newTestStore(t *testing.T) (Store, *sqlx.DB) {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { CloseDB(db) })
	return NewStore(db, nil), db
}

func textRow(id string, ts int64, from, text string) *Message {
	return &Message{
		ID:        id,
		Timestamp: ts,
		Payload:   fmt.Sprintf(`{"event":"message","id":%q,"date":%d,"from":{"id":"u","print_name":%q},"to":{"id":"$peer"},"text":%q}`, id, ts, from, text),
		Kind:      string(chat.KindMessage),
	}
}

func serviceRow(id string, ts int64, action string) *Message {
	return &Message{
		ID:        id,
		Timestamp: ts,
		Payload:   fmt.Sprintf(`{"event":"service","id":%q,"date":%d,"from":{"id":"u","print_name":"admin"},"action":{"type":%q}}`, id, ts, action),
		Kind:      string(chat.KindService),
	}
}

func TestSaveMessageIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, db := newTestStore(t)

	msg := textRow("m1", 100, "alice", "hello")
	inserted, err := store.SaveMessage(ctx, msg)
	if err != nil || !inserted {
		t.Fatalf("first SaveMessage() = %v, %v; want true, nil", inserted, err)
	}
	inserted, err = store.SaveMessage(ctx, msg)
	if err != nil || inserted {
		t.Fatalf("second SaveMessage() = %v, %v; want false, nil", inserted, err)
	}

	var rows int
	if err := db.Get(&rows, `SELECT COUNT(*) FROM messages WHERE id = ?`, "m1"); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if rows != 1 {
		t.Errorf("rows for m1 = %d, want 1", rows)
	}
}

func TestSaveMessageValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newTestStore(t)

	tests := []struct {
		name string
		msg  *Message
	}{
		{name: "nil", msg: nil},
		{name: "empty id", msg: &Message{Kind: "message", Payload: "{}"}},
		{name: "bad kind", msg: &Message{ID: "x", Kind: "photo", Payload: "{}"}},
		{name: "empty payload", msg: &Message{ID: "x", Kind: "message"}},
	}
	for _, tc := range tests {
		if _, err := store.SaveMessage(ctx, tc.msg); err == nil {
			t.Errorf("%s: SaveMessage() expected error", tc.name)
		}
	}
}

func TestSavePageAdvancesCursor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newTestStore(t)

	if _, ok, err := store.Cursor(ctx); err != nil || ok {
		t.Fatalf("Cursor() on empty store = ok %v, err %v", ok, err)
	}

	res, err := store.SavePage(ctx, []*Message{textRow("a", 1, "alice", "x"), textRow("b", 2, "bob", "y")}, 2)
	if err != nil {
		t.Fatalf("SavePage() error = %v", err)
	}
	if res.Inserted != 2 || len(res.Duplicates) != 0 {
		t.Errorf("first page result = %+v", res)
	}

	res, err = store.SavePage(ctx, []*Message{textRow("b", 2, "bob", "y"), textRow("c", 3, "carol", "z")}, 4)
	if err != nil {
		t.Fatalf("SavePage() error = %v", err)
	}
	if res.Inserted != 1 || len(res.Duplicates) != 1 || res.Duplicates[0] != "b" {
		t.Errorf("second page result = %+v", res)
	}

	cursor, ok, err := store.Cursor(ctx)
	if err != nil || !ok || cursor != 4 {
		t.Errorf("Cursor() = %d, %v, %v; want 4, true, nil", cursor, ok, err)
	}
	if n, _ := store.CountMessages(ctx, ""); n != 3 {
		t.Errorf("CountMessages() = %d, want 3", n)
	}
}

func TestSavePageRollsBackOnInvalidRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.SavePage(ctx, []*Message{textRow("a", 1, "alice", "x"), {ID: "bad"}}, 2)
	if err == nil {
		t.Fatal("SavePage() expected error")
	}
	if n, _ := store.CountMessages(ctx, ""); n != 0 {
		t.Errorf("CountMessages() = %d after failed page, want 0", n)
	}
	if _, ok, _ := store.Cursor(ctx); ok {
		t.Error("cursor was persisted for a failed page")
	}
}

func TestPeerAndPayload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newTestStore(t)

	if _, err := store.AnyPayload(ctx); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("AnyPayload() on empty store error = %v, want ErrNotInitialized", err)
	}
	if peer, err := store.Peer(ctx); err != nil || peer != "" {
		t.Errorf("Peer() = %q, %v", peer, err)
	}
	if err := store.SetPeer(ctx, "$0100"); err != nil {
		t.Fatalf("SetPeer() error = %v", err)
	}
	if err := store.SetPeer(ctx, "$0200"); err != nil {
		t.Fatalf("SetPeer() error = %v", err)
	}
	if peer, _ := store.Peer(ctx); peer != "$0200" {
		t.Errorf("Peer() = %q, want $0200", peer)
	}

	if _, err := store.SaveMessage(ctx, textRow("m", 10, "alice", "hi")); err != nil {
		t.Fatalf("SaveMessage() error = %v", err)
	}
	payload, err := store.AnyPayload(ctx)
	if err != nil {
		t.Fatalf("AnyPayload() error = %v", err)
	}
	ev, err := chat.Decode([]byte(payload))
	if err != nil || ev.To.ID != "$peer" {
		t.Errorf("decoded payload = %+v, %v", ev, err)
	}
}

func TestScanEvents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newTestStore(t)

	rows := []*Message{
		textRow("m3", 300, "carol", "third"),
		textRow("m1", 100, "alice", "first"),
		serviceRow("s1", 150, chat.ActionAddUser),
		textRow("m2", 200, "bob", "second"),
		{ID: "broken", Timestamp: 250, Payload: "{not json", Kind: "message"},
	}
	if _, err := store.SavePage(ctx, rows, len(rows)); err != nil {
		t.Fatalf("SavePage() error = %v", err)
	}

	collect := func(filter ScanFilter) []string {
		t.Helper()
		var ids []string
		err := store.ScanEvents(ctx, filter, func(ev *chat.Event) error {
			ids = append(ids, string(ev.ID))
			return nil
		})
		if err != nil {
			t.Fatalf("ScanEvents(%+v) error = %v", filter, err)
		}
		return ids
	}

	tests := []struct {
		name   string
		filter ScanFilter
		want   string
	}{
		{name: "all ascending", filter: ScanFilter{}, want: "[m1 s1 m2 m3]"},
		{name: "messages only", filter: ScanFilter{Kind: chat.KindMessage}, want: "[m1 m2 m3]"},
		{name: "service only", filter: ScanFilter{Kind: chat.KindService}, want: "[s1]"},
		{name: "since inclusive", filter: ScanFilter{Kind: chat.KindMessage, Since: 200}, want: "[m2 m3]"},
		{name: "newest first limited", filter: ScanFilter{Kind: chat.KindMessage, Descending: true, Limit: 3}, want: "[m3 m2]"},
	}
	for _, tc := range tests {
		if got := fmt.Sprint(collect(tc.filter)); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}

	stop := errors.New("stop")
	err := store.ScanEvents(ctx, ScanFilter{}, func(*chat.Event) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("ScanEvents() error = %v, want callback error", err)
	}
}

func TestRunSQLMaintenance(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)

	if err := store.RunSQLMaintenance(context.Background()); err != nil {
		t.Errorf("RunSQLMaintenance() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.RunSQLMaintenance(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("RunSQLMaintenance() with cancelled context error = %v", err)
	}
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"guild.db":                     "guild.db",
		"file:guild.db?_pragma=foo":    "guild.db",
		"file:my%20chat.db?cache=priv": "my chat.db",
	} {
		if got := ExtractDBNameFromPath(in); got != want {
			t.Errorf("ExtractDBNameFromPath(%q) = %q, want %q", in, got, want)
		}
	}
}
