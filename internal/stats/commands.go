package stats

import (
	"context"
	"fmt"

	"github.com/edgard/tgstats/internal/chat"
	"github.com/edgard/tgstats/internal/database"
)

// CommandUsage is one bot command with its heaviest users.
type CommandUsage struct {
	Command string
	Count   int
	Users   []Frequency
}

// Commands ranks bot commands by use and, per command, the users issuing
// them.
func Commands(ctx context.Context, src Source, topCommands, topUsers int) ([]CommandUsage, error) {
	commands := newCounter()
	users := make(map[string]*counter)

	err := scan(ctx, src, database.ScanFilter{Kind: chat.KindMessage}, func(ev *chat.Event) error {
		cmd, ok := chat.Command(ev.Text)
		if !ok {
			return nil
		}
		commands.add(cmd, 1)
		if users[cmd] == nil {
			users[cmd] = newCounter()
		}
		users[cmd].add(ev.From.DisplayName(), 1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("commands: %w", err)
	}

	ranked := commands.top(topCommands)
	out := make([]CommandUsage, len(ranked))
	for i, f := range ranked {
		out[i] = CommandUsage{Command: f.Key, Count: f.Count, Users: users[f.Key].top(topUsers)}
	}
	return out, nil
}

// Bots ranks senders whose display name ends in "bot" by message count.
func Bots(ctx context.Context, src Source, limit int) ([]Frequency, error) {
	bots := newCounter()
	err := scan(ctx, src, database.ScanFilter{Kind: chat.KindMessage}, func(ev *chat.Event) error {
		if name := ev.From.DisplayName(); chat.IsBotName(name) {
			bots.add(name, 1)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bots: %w", err)
	}
	return bots.top(limit), nil
}
