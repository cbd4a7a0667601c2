package stats

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/edgard/tgstats/internal/chat"
	"github.com/edgard/tgstats/internal/database"
)

// Rename is one chat title change.
type Rename struct {
	Time     time.Time
	OldTitle string
	NewTitle string
	Actor    string
}

// Renames lists title changes most recent first. The old title of the
// earliest stored rename is unknown and left empty.
func Renames(ctx context.Context, src Source, loc *time.Location, limit int) ([]Rename, error) {
	loc = location(loc)
	var renames []Rename
	var title string

	err := scan(ctx, src, database.ScanFilter{Kind: chat.KindService}, func(ev *chat.Event) error {
		if ev.ActionType() != chat.ActionRename {
			return nil
		}
		renames = append(renames, Rename{
			Time:     ev.Time(loc),
			OldTitle: title,
			NewTitle: ev.Action.Title,
			Actor:    ev.From.DisplayName(),
		})
		title = ev.Action.Title
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("renames: %w", err)
	}

	slices.Reverse(renames)
	if limit > 0 && len(renames) > limit {
		renames = renames[:limit]
	}
	return renames, nil
}
