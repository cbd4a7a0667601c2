package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/tgstats/internal/chat"
	"github.com/edgard/tgstats/internal/database"
)

// General holds the whole-history totals.
type General struct {
	Messages  int
	Texts     int
	Words     int
	Documents int
	Photos    int
	Services  int
	Talkers   int
	First     time.Time
	Last      time.Time
}

// WordsPerText returns the average words per text message, 0 without any.
func (g General) WordsPerText() float64 {
	if g.Texts == 0 {
		return 0
	}
	return float64(g.Words) / float64(g.Texts)
}

// MediaShare returns the percentage of messages carrying a document or
// photo.
func (g General) MediaShare() float64 {
	return Percent(g.Documents+g.Photos, g.Messages)
}

// GeneralNumbers scans every record once for the totals.
func GeneralNumbers(ctx context.Context, src Source, loc *time.Location) (General, error) {
	loc = location(loc)
	var g General
	talkers := make(map[string]struct{})

	err := scan(ctx, src, database.ScanFilter{}, func(ev *chat.Event) error {
		if ev.IsService() {
			g.Services++
			return nil
		}

		t := ev.Time(loc)
		if g.Messages == 0 {
			g.First = t
		}
		g.Last = t
		g.Messages++
		talkers[ev.From.DisplayName()] = struct{}{}

		switch {
		case ev.HasText():
			g.Texts++
			g.Words += chat.WordCount(ev.Text)
		case ev.MediaType() == chat.MediaDocument:
			g.Documents++
		case ev.MediaType() == chat.MediaPhoto:
			g.Photos++
		}
		return nil
	})
	if err != nil {
		return General{}, fmt.Errorf("general numbers: %w", err)
	}
	g.Talkers = len(talkers)
	return g, nil
}
