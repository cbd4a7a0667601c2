package stats

import (
	"context"
	"fmt"
	"sort"

	"github.com/edgard/tgstats/internal/chat"
	"github.com/edgard/tgstats/internal/database"
)

// Talker holds the tallies of one display name.
type Talker struct {
	Name      string
	Messages  int
	Words     int
	Documents int
	Photos    int
}

// Talkers tallies ordinary messages per display name, ranked by message
// count with ties in first-seen order. A positive since restricts the scan
// to messages sent at or after that unix second.
//
// Text messages count toward Messages and Words. Media without text count
// toward Documents or Photos; other media only register the sender.
func Talkers(ctx context.Context, src Source, since int64) ([]Talker, error) {
	index := make(map[string]int)
	var talkers []Talker

	err := scan(ctx, src, database.ScanFilter{Kind: chat.KindMessage, Since: since}, func(ev *chat.Event) error {
		name := ev.From.DisplayName()
		i, ok := index[name]
		if !ok {
			i = len(talkers)
			index[name] = i
			talkers = append(talkers, Talker{Name: name})
		}

		t := &talkers[i]
		switch {
		case ev.HasText():
			t.Messages++
			t.Words += chat.WordCount(ev.Text)
		case ev.MediaType() == chat.MediaDocument:
			t.Documents++
		case ev.MediaType() == chat.MediaPhoto:
			t.Photos++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("talkers: %w", err)
	}

	sort.SliceStable(talkers, func(i, j int) bool { return talkers[i].Messages > talkers[j].Messages })
	return talkers, nil
}

// Top returns at most n talkers; n <= 0 returns all.
func Top(talkers []Talker, n int) []Talker {
	if n > 0 && len(talkers) > n {
		return talkers[:n]
	}
	return talkers
}
