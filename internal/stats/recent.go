package stats

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/edgard/tgstats/internal/chat"
	"github.com/edgard/tgstats/internal/database"
)

// Line is one text message prepared for summarizing.
type Line struct {
	Time time.Time
	Name string
	Text string
}

// RecentTexts returns the newest limit text messages in chronological order.
func RecentTexts(ctx context.Context, src Source, loc *time.Location, limit int) ([]Line, error) {
	loc = location(loc)
	if limit <= 0 {
		return nil, nil
	}

	lines := make([]Line, 0, limit)
	err := scan(ctx, src, database.ScanFilter{Kind: chat.KindMessage, Descending: true}, func(ev *chat.Event) error {
		if !ev.HasText() {
			return nil
		}
		lines = append(lines, Line{Time: ev.Time(loc), Name: ev.From.DisplayName(), Text: ev.Text})
		if len(lines) == limit {
			return errStop
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recent texts: %w", err)
	}
	slices.Reverse(lines)
	return lines, nil
}
