package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/tgstats/internal/chat"
	"github.com/edgard/tgstats/internal/database"
)

// Peak is the busiest stretch of text messages.
type Peak struct {
	Count  int
	Window time.Duration
	Start  time.Time
	End    time.Time
}

// PeakRate finds the largest number of text messages sent within any
// window-long stretch. Messages older than window relative to the newest
// one are dropped from the trailing buffer before it is measured.
func PeakRate(ctx context.Context, src Source, window time.Duration, loc *time.Location) (Peak, error) {
	loc = location(loc)
	peak := Peak{Window: window}
	span := int64(window / time.Second)
	if span <= 0 {
		return peak, fmt.Errorf("peak rate: window %s is shorter than a second", window)
	}

	var buf []int64
	err := scan(ctx, src, database.ScanFilter{Kind: chat.KindMessage}, func(ev *chat.Event) error {
		if !ev.HasText() {
			return nil
		}
		t := ev.Date
		drop := 0
		for drop < len(buf) && t-buf[drop] >= span {
			drop++
		}
		buf = append(buf[drop:], t)

		if len(buf) > peak.Count {
			peak.Count = len(buf)
			peak.Start = time.Unix(buf[0], 0).In(loc)
			peak.End = time.Unix(t, 0).In(loc)
		}
		return nil
	})
	if err != nil {
		return Peak{}, fmt.Errorf("peak rate: %w", err)
	}
	return peak, nil
}
