package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/tgstats/internal/chat"
	"github.com/edgard/tgstats/internal/logger"
)

// ErrNotInitialized is returned when a store holds no dump yet.
var ErrNotInitialized = errors.New("database is not initialized, run the dump with --initdb first")

const (
	stateCursor = "cursor"
	statePeer   = "peer"
)

// Store defines the database operations used by the collector, the live
// capture and the reporter. Methods accept context.Context for cancellation.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessage inserts one record. It reports false without error when
	// the identifier is already stored.
	SaveMessage(ctx context.Context, message *Message) (bool, error)

	// SavePage inserts a page of records and sets the dump cursor in a
	// single transaction.
	SavePage(ctx context.Context, page []*Message, cursor int) (PageResult, error)

	// Cursor returns the persisted dump cursor and whether one exists.
	Cursor(ctx context.Context) (int, bool, error)

	// SetCursor overwrites the dump cursor.
	SetCursor(ctx context.Context, cursor int) error

	// Peer returns the recorded conversation identifier or "".
	Peer(ctx context.Context) (string, error)

	// SetPeer records the conversation identifier.
	SetPeer(ctx context.Context, peer string) error

	// AnyPayload returns the payload of one stored record.
	AnyPayload(ctx context.Context) (string, error)

	// CountMessages counts records of a kind, or all records for "".
	CountMessages(ctx context.Context, kind chat.Kind) (int, error)

	// ScanEvents decodes matching records in order and passes them to fn.
	// Records whose payload cannot be decoded are logged and skipped. The
	// pool holds one connection, so fn must not call back into the store.
	ScanEvents(ctx context.Context, filter ScanFilter, fn func(*chat.Event) error) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, log *slog.Logger) Store {
	if log == nil {
		log = logger.Discard()
	}
	return &sqlxStore{
		db:     db,
		logger: log.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func validateMessage(m *Message) error {
	if m == nil {
		return fmt.Errorf("cannot save nil message")
	}
	if m.ID == "" {
		return fmt.Errorf("message must have a non-empty id")
	}
	if m.Kind != string(chat.KindMessage) && m.Kind != string(chat.KindService) {
		return fmt.Errorf("message %s has unknown kind %q", m.ID, m.Kind)
	}
	if m.Payload == "" {
		return fmt.Errorf("message %s has an empty payload", m.ID)
	}
	return nil
}

const insertMessageQuery = `
	INSERT INTO messages (id, timestamp, payload, kind)
	VALUES (:id, :timestamp, :payload, :kind)
	ON CONFLICT (id) DO NOTHING;
`

func insertMessage(ctx context.Context, ext sqlx.ExtContext, m *Message) (bool, error) {
	result, err := sqlx.NamedExecContext(ctx, ext, insertMessageQuery, m)
	if err != nil {
		return false, fmt.Errorf("failed to save message %s: %w", m.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows for message %s: %w", m.ID, err)
	}
	return affected == 1, nil
}

const upsertStateQuery = `
	INSERT INTO dump_state (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;
`

func setState(ctx context.Context, ext sqlx.ExecerContext, key, value string) error {
	if _, err := ext.ExecContext(ctx, upsertStateQuery, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set dump state %s: %w", key, err)
	}
	return nil
}

func (s *sqlxStore) getState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM dump_state WHERE key = ?`, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("failed to read dump state %s: %w", key, err)
	}
	return value, true, nil
}

// SaveMessage inserts a single record outside of any page.
func (s *sqlxStore) SaveMessage(ctx context.Context, message *Message) (bool, error) {
	if err := validateMessage(message); err != nil {
		return false, err
	}

	inserted, err := insertMessage(ctx, s.db, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "message_id", message.ID, "error", err)
		return false, err
	}
	if !inserted {
		s.logger.InfoContext(ctx, "Collision", "message_id", message.ID)
		return false, nil
	}

	s.logger.DebugContext(ctx, "Message saved", "message_id", message.ID, "kind", message.Kind)
	return true, nil
}

// SavePage commits every record of a page together with the new cursor, so
// the cursor never runs ahead of or behind the stored rows.
func (s *sqlxStore) SavePage(ctx context.Context, page []*Message, cursor int) (PageResult, error) {
	result := PageResult{Cursor: cursor}
	if cursor < 0 {
		return result, fmt.Errorf("cursor cannot be negative: %d", cursor)
	}
	for _, m := range page {
		if err := validateMessage(m); err != nil {
			return result, err
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for page", "error", err)
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	for _, m := range page {
		inserted, err := insertMessage(ctx, tx, m)
		if err != nil {
			s.logger.ErrorContext(ctx, "Error saving page message", "message_id", m.ID, "error", err)
			return PageResult{Cursor: cursor}, err
		}
		if inserted {
			result.Inserted++
		} else {
			result.Duplicates = append(result.Duplicates, m.ID)
		}
	}

	if err := setState(ctx, tx, stateCursor, strconv.Itoa(cursor)); err != nil {
		return PageResult{Cursor: cursor}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit page", "cursor", cursor, "error", err)
		return PageResult{Cursor: cursor}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Page committed",
		"size", len(page), "inserted", result.Inserted, "duplicates", len(result.Duplicates), "cursor", cursor)
	return result, nil
}

// Cursor returns the persisted dump cursor.
func (s *sqlxStore) Cursor(ctx context.Context) (int, bool, error) {
	value, ok, err := s.getState(ctx, stateCursor)
	if err != nil || !ok {
		return 0, false, err
	}
	cursor, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("stored cursor %q is not an integer: %w", value, err)
	}
	return cursor, true, nil
}

// SetCursor overwrites the dump cursor.
func (s *sqlxStore) SetCursor(ctx context.Context, cursor int) error {
	if cursor < 0 {
		return fmt.Errorf("cursor cannot be negative: %d", cursor)
	}
	return setState(ctx, s.db, stateCursor, strconv.Itoa(cursor))
}

// Peer returns the recorded conversation identifier.
func (s *sqlxStore) Peer(ctx context.Context) (string, error) {
	value, _, err := s.getState(ctx, statePeer)
	return value, err
}

// SetPeer records the conversation identifier.
func (s *sqlxStore) SetPeer(ctx context.Context, peer string) error {
	if peer == "" {
		return fmt.Errorf("peer cannot be empty")
	}
	return setState(ctx, s.db, statePeer, peer)
}

// AnyPayload returns the payload of the oldest stored record.
func (s *sqlxStore) AnyPayload(ctx context.Context) (string, error) {
	var payload string
	err := s.db.GetContext(ctx, &payload, `SELECT payload FROM messages ORDER BY timestamp ASC, id ASC LIMIT 1`)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", ErrNotInitialized
	case err != nil:
		return "", fmt.Errorf("failed to read a stored payload: %w", err)
	}
	return payload, nil
}

// CountMessages counts records of a kind.
func (s *sqlxStore) CountMessages(ctx context.Context, kind chat.Kind) (int, error) {
	var count int
	var err error
	if kind == "" {
		err = s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages`)
	} else {
		err = s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages WHERE kind = ?`, string(kind))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func buildScanQuery(filter ScanFilter) (string, []any) {
	query := `SELECT id, timestamp, payload, kind FROM messages WHERE 1 = 1`
	var args []any
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Since > 0 {
		query += ` AND timestamp >= ?`
		args = append(args, filter.Since)
	}
	if filter.Descending {
		query += ` ORDER BY timestamp DESC, id DESC`
	} else {
		query += ` ORDER BY timestamp ASC, id ASC`
	}
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	return query, args
}

// ScanEvents streams matching records through fn.
func (s *sqlxStore) ScanEvents(ctx context.Context, filter ScanFilter, fn func(*chat.Event) error) error {
	query, args := buildScanQuery(filter)

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error scanning messages", "kind", filter.Kind, "error", err)
		return fmt.Errorf("failed to scan messages: %w", err)
	}
	defer rows.Close()

	var scanned, skipped int
	for rows.Next() {
		var m Message
		if err := rows.StructScan(&m); err != nil {
			return fmt.Errorf("failed to read message row: %w", err)
		}

		ev, err := chat.Decode([]byte(m.Payload))
		if err != nil {
			skipped++
			s.logger.WarnContext(ctx, "Skipping undecodable payload", "message_id", m.ID, "error", err)
			continue
		}
		ev.Kind = chat.Kind(m.Kind)
		if ev.Date == 0 {
			ev.Date = m.Timestamp
		}

		scanned++
		if err := fn(ev); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate messages: %w", err)
	}

	s.logger.DebugContext(ctx, "Scanned messages", "kind", filter.Kind, "count", scanned, "skipped", skipped)
	return nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
