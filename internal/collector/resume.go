package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/edgard/tgstats/internal/chat"
	"github.com/edgard/tgstats/internal/config"
	"github.com/edgard/tgstats/internal/database"
)

// ErrPeerMismatch is returned when --initdb names a different conversation
// than the one already stored.
var ErrPeerMismatch = errors.New("database already tracks another conversation")

// ResolvePeer returns the conversation to dump. On initialization the
// explicit id is validated and recorded; afterwards the recorded peer is
// used, falling back to the destination of any stored message.
func ResolvePeer(ctx context.Context, store database.Store, explicitID string, initialize bool, log *slog.Logger) (string, error) {
	if initialize {
		if err := config.ValidatePeerID(explicitID); err != nil {
			return "", err
		}
		peer := "$" + strings.ToLower(explicitID)

		existing, err := store.Peer(ctx)
		if err != nil {
			return "", err
		}
		if existing != "" && existing != peer {
			return "", fmt.Errorf("%w: %s", ErrPeerMismatch, existing)
		}
		if err := store.SetPeer(ctx, peer); err != nil {
			return "", err
		}
		log.InfoContext(ctx, "Initialized database", "peer", peer)
		return peer, nil
	}

	if explicitID != "" {
		log.WarnContext(ctx, "Given ID is ignored without --initdb", "id", explicitID)
	}

	peer, err := store.Peer(ctx)
	if err != nil {
		return "", err
	}
	if peer != "" {
		return peer, nil
	}

	payload, err := store.AnyPayload(ctx)
	if err != nil {
		return "", err
	}
	ev, err := chat.Decode([]byte(payload))
	if err != nil {
		return "", fmt.Errorf("failed to read peer from stored message: %w", err)
	}
	if ev.To.ID == "" {
		return "", fmt.Errorf("stored message %s has no destination peer", ev.ID)
	}

	peer = string(ev.To.ID)
	if err := store.SetPeer(ctx, peer); err != nil {
		return "", err
	}
	log.InfoContext(ctx, "Recovered peer from stored message", "peer", peer)
	return peer, nil
}

// LoadCursor returns the offset to start from: 0 unless resuming, else the
// cursor stored alongside the messages. A sidecar file left by older dumps
// is imported once when the store has no cursor.
func LoadCursor(ctx context.Context, store database.Store, resume bool, legacyPath string, log *slog.Logger) (int, error) {
	if !resume {
		return 0, nil
	}

	cursor, ok, err := store.Cursor(ctx)
	if err != nil {
		return 0, err
	}
	if ok {
		return cursor, nil
	}

	data, err := os.ReadFile(legacyPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("failed to read legacy offset file: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, nil
	}
	cursor, err = strconv.Atoi(text)
	if err != nil || cursor < 0 {
		return 0, fmt.Errorf("legacy offset file %s holds %q, not a cursor", legacyPath, text)
	}

	if err := store.SetCursor(ctx, cursor); err != nil {
		return 0, err
	}
	log.InfoContext(ctx, "Imported legacy offset file", "path", legacyPath, "offset", cursor)
	return cursor, nil
}
