// Package chat defines the message model shared by the collector, the store
// and the report aggregates. Payloads arrive as loosely shaped JSON objects
// and are decoded once into an Event, which is either an ordinary message or
// a service event.
package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind tags a stored record.
type Kind string

const (
	KindMessage Kind = "message"
	KindService Kind = "service"
)

// Media types reported by the history client.
const (
	MediaPhoto    = "photo"
	MediaDocument = "document"
	MediaGeo      = "geo"
	MediaContact  = "contact"
)

// Service action types.
const (
	ActionAddUser     = "chat_add_user"
	ActionAddUserLink = "chat_add_user_link"
	ActionDelUser     = "chat_del_user"
	ActionRename      = "chat_rename"
)

// ErrMissingID is returned by Decode when the payload carries no identifier.
var ErrMissingID = errors.New("payload has no message id")

// ID is an external identifier. Older clients send hex strings, newer ones
// plain numbers; both decode to the same textual form.
type ID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("invalid id %s: %w", b, err)
		}
		*id = ID(n.String())
		return nil
	}
}

// Peer is a user or chat as embedded in a payload.
type Peer struct {
	ID        ID     `json:"id"`
	PeerType  string `json:"peer_type,omitempty"`
	PrintName string `json:"print_name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	Title     string `json:"title,omitempty"`
}

// DisplayName is the name a talker is known by in reports.
func (p Peer) DisplayName() string {
	if p.PrintName != "" {
		return strings.ReplaceAll(p.PrintName, "_", " ")
	}
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		return name
	}
	if p.Username != "" {
		return p.Username
	}
	if p.Title != "" {
		return p.Title
	}
	return string(p.ID)
}

// Media describes a message attachment.
type Media struct {
	Type    string `json:"type"`
	Caption string `json:"caption,omitempty"`
}

// Action describes what a service event did to the chat.
type Action struct {
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
	User  *Peer  `json:"user,omitempty"`
	Users []Peer `json:"users,omitempty"`
}

// Members is the number of members joined or removed by the action.
func (a *Action) Members() int {
	if a == nil {
		return 0
	}
	if len(a.Users) > 0 {
		return len(a.Users)
	}
	return 1
}

// Event is one decoded message or service event.
type Event struct {
	ID      ID      `json:"id"`
	Kind    Kind    `json:"event"`
	Date    int64   `json:"date"`
	Service bool    `json:"service,omitempty"`
	From    Peer    `json:"from"`
	To      Peer    `json:"to"`
	Text    string  `json:"text,omitempty"`
	Media   *Media  `json:"media,omitempty"`
	Action  *Action `json:"action,omitempty"`

	// Raw is the payload exactly as received.
	Raw json.RawMessage `json:"-"`
}

// Decode parses a payload. Unknown fields are preserved in Raw only.
func Decode(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	if ev.ID == "" {
		return nil, ErrMissingID
	}
	if ev.Kind != KindMessage && ev.Kind != KindService {
		if ev.Action != nil || ev.Service {
			ev.Kind = KindService
		} else {
			ev.Kind = KindMessage
		}
	}
	ev.Raw = append(json.RawMessage(nil), data...)
	return &ev, nil
}

// Encode returns the payload to store: the raw bytes when the event was
// decoded, a fresh JSON encoding otherwise.
func (e *Event) Encode() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event %s: %w", e.ID, err)
	}
	return b, nil
}

// IsMessage reports whether the event is an ordinary message.
func (e *Event) IsMessage() bool { return e.Kind == KindMessage }

// IsService reports whether the event is a service event.
func (e *Event) IsService() bool { return e.Kind == KindService }

// HasText reports whether the message carries text.
func (e *Event) HasText() bool { return e.Text != "" }

// MediaType returns the attachment type or an empty string.
func (e *Event) MediaType() string {
	if e.Media == nil {
		return ""
	}
	return e.Media.Type
}

// ActionType returns the service action type or an empty string.
func (e *Event) ActionType() string {
	if e.Action == nil {
		return ""
	}
	return e.Action.Type
}

// Time returns the send time in loc.
func (e *Event) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(e.Date, 0).In(loc)
}
