package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/tgstats/internal/chat"
	"github.com/edgard/tgstats/internal/database"
)

// PopulationDay is the member count at the end of a day with membership
// changes.
type PopulationDay struct {
	Day    time.Time
	Total  int
	Joins  int
	Leaves int
}

// Population replays join and leave events in time order starting from
// initial members.
func Population(ctx context.Context, src Source, loc *time.Location, initial int) ([]PopulationDay, error) {
	loc = location(loc)
	total := initial
	var days []PopulationDay

	err := scan(ctx, src, database.ScanFilter{Kind: chat.KindService}, func(ev *chat.Event) error {
		var joins, leaves int
		switch ev.ActionType() {
		case chat.ActionAddUser, chat.ActionAddUserLink:
			joins = ev.Action.Members()
		case chat.ActionDelUser:
			leaves = 1
		default:
			return nil
		}

		d := day(ev.Time(loc))
		if len(days) == 0 || !days[len(days)-1].Day.Equal(d) {
			days = append(days, PopulationDay{Day: d, Total: total})
		}
		total += joins - leaves

		cur := &days[len(days)-1]
		cur.Total = total
		cur.Joins += joins
		cur.Leaves += leaves
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("population: %w", err)
	}
	return days, nil
}
