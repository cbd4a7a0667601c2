package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/tgstats/internal/chat"
	"github.com/edgard/tgstats/internal/database"
)

// DayCount is the number of ordinary messages sent on a day.
type DayCount struct {
	Day      time.Time
	Messages int
}

// DailyVolume counts ordinary messages per local calendar day. Days without
// messages are omitted.
func DailyVolume(ctx context.Context, src Source, loc *time.Location) ([]DayCount, error) {
	loc = location(loc)
	var days []DayCount
	err := scan(ctx, src, database.ScanFilter{Kind: chat.KindMessage}, func(ev *chat.Event) error {
		d := day(ev.Time(loc))
		if len(days) == 0 || !days[len(days)-1].Day.Equal(d) {
			days = append(days, DayCount{Day: d})
		}
		days[len(days)-1].Messages++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("daily volume: %w", err)
	}
	return days, nil
}

// HourlyActivity counts ordinary messages per local hour of day.
func HourlyActivity(ctx context.Context, src Source, loc *time.Location) ([24]int, error) {
	loc = location(loc)
	var hours [24]int
	err := scan(ctx, src, database.ScanFilter{Kind: chat.KindMessage}, func(ev *chat.Event) error {
		hours[ev.Time(loc).Hour()]++
		return nil
	})
	if err != nil {
		return hours, fmt.Errorf("hourly activity: %w", err)
	}
	return hours, nil
}
