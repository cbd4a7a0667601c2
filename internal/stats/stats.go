// Package stats computes the read-only aggregates shown in the report.
// Every aggregate is an independent scan over a Source.
package stats

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/edgard/tgstats/internal/chat"
	"github.com/edgard/tgstats/internal/database"
)

// Source streams stored events. database.Store satisfies it.
type Source interface {
	ScanEvents(ctx context.Context, filter database.ScanFilter, fn func(*chat.Event) error) error
}

// errStop ends a scan early without reporting a failure.
var errStop = errors.New("stop scan")

func scan(ctx context.Context, src Source, filter database.ScanFilter, fn func(*chat.Event) error) error {
	err := src.ScanEvents(ctx, filter, fn)
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

// Frequency is one ranked key.
type Frequency struct {
	Key   string
	Count int
}

// counter tallies keys and remembers the order they were first seen in, so
// that rankings break ties by first appearance.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string, n int) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key] += n
}

// top returns up to limit keys by descending count; limit <= 0 means all.
func (c *counter) top(limit int) []Frequency {
	out := make([]Frequency, len(c.order))
	for i, key := range c.order {
		out[i] = Frequency{Key: key, Count: c.counts[key]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Percent returns part as a percentage of whole, or 0 for an empty whole.
func Percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

// Since returns the first unix second inside a trailing window ending at
// ref. Messages at exactly ref-window are inside.
func Since(ref time.Time, window time.Duration) int64 {
	return ref.Add(-window).Unix()
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
