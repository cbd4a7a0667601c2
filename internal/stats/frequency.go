package stats

import (
	"context"
	"fmt"

	"github.com/edgard/tgstats/internal/chat"
	"github.com/edgard/tgstats/internal/database"
)

// WordFrequency ranks lower-cased words across all message text.
func WordFrequency(ctx context.Context, src Source, limit int) ([]Frequency, error) {
	words := newCounter()
	err := scan(ctx, src, database.ScanFilter{Kind: chat.KindMessage}, func(ev *chat.Event) error {
		for _, w := range chat.Words(ev.Text) {
			words.add(w, 1)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("word frequency: %w", err)
	}
	return words.top(limit), nil
}

// EmojiFrequency ranks pictographic characters across all message text.
func EmojiFrequency(ctx context.Context, src Source, limit int) ([]Frequency, error) {
	emojis := newCounter()
	err := scan(ctx, src, database.ScanFilter{Kind: chat.KindMessage}, func(ev *chat.Event) error {
		for _, r := range chat.Emojis(ev.Text) {
			emojis.add(string(r), 1)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("emoji frequency: %w", err)
	}
	return emojis.top(limit), nil
}
