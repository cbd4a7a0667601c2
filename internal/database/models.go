package database

import (
	"fmt"

	"github.com/edgard/tgstats/internal/chat"
)

// Message is one row of the messages table: a chat message or service
// event keyed by the external identifier.
type Message struct {
	ID        string `db:"id"`
	Timestamp int64  `db:"timestamp"`
	Payload   string `db:"payload"`
	Kind      string `db:"kind"`
}

// MessageFromEvent converts a decoded event into a row.
func MessageFromEvent(ev *chat.Event) (*Message, error) {
	if ev == nil {
		return nil, fmt.Errorf("cannot convert nil event")
	}
	payload, err := ev.Encode()
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:        string(ev.ID),
		Timestamp: ev.Date,
		Payload:   string(payload),
		Kind:      string(ev.Kind),
	}, nil
}

// PageResult reports what happened to one committed page.
type PageResult struct {
	Inserted   int
	Duplicates []string
	Cursor     int
}

// ScanFilter narrows a scan over the messages table.
type ScanFilter struct {
	// Kind restricts rows to one kind; empty means all.
	Kind chat.Kind
	// Since keeps rows with timestamp >= Since when positive.
	Since int64
	// Descending orders newest first.
	Descending bool
	// Limit caps the number of rows when positive.
	Limit int
}
