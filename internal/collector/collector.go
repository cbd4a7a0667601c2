// Package collector implements the dump loop: it pages through the history
// of one conversation and appends every unseen message to the store,
// committing the cursor together with each page.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/tgstats/internal/database"
	"github.com/edgard/tgstats/internal/logger"
	"github.com/edgard/tgstats/internal/telegramcli"
)

// ErrRemote marks a terminal error answer from the history client.
var ErrRemote = errors.New("history request rejected")

// HistoryClient fetches one page of conversation history.
type HistoryClient interface {
	History(ctx context.Context, peer string, limit, offset int) (telegramcli.Page, error)
}

// Options tunes the loop.
type Options struct {
	// Step is the page size requested from the client.
	Step int
	// Backoff is the fixed wait before retrying a transient failure.
	Backoff time.Duration
}

// Result summarizes one run.
type Result struct {
	Pages      int
	Fetched    int
	Inserted   int
	Duplicates int
	Retries    int
	Cursor     int
	// Exhausted is set when the client returned an empty page.
	Exhausted bool
}

// Collector runs the dump loop.
type Collector struct {
	client  HistoryClient
	store   database.Store
	log     *slog.Logger
	step    int
	backoff time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a Collector.
func New(client HistoryClient, store database.Store, log *slog.Logger, opts Options) *Collector {
	if log == nil {
		log = logger.Discard()
	}
	if opts.Step <= 0 {
		opts.Step = 100
	}
	return &Collector{
		client:  client,
		store:   store,
		log:     log.With("component", "collector"),
		step:    opts.Step,
		backoff: opts.Backoff,
		sleep:   sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run fetches pages starting at cursor until the client returns an empty
// page, answers with an error, or ctx is cancelled. Transient client
// failures are retried forever after a fixed backoff. The returned Result
// is valid in every case; its Cursor is the last committed value.
func (c *Collector) Run(ctx context.Context, peer string, cursor int) (Result, error) {
	res := Result{Cursor: cursor}
	c.log.InfoContext(ctx, "Starting dump", "peer", peer, "offset", cursor, "step", c.step)

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		page, err := c.client.History(ctx, peer, c.step, res.Cursor)
		if err != nil {
			var remote *telegramcli.RemoteError
			switch {
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				return res, err
			case errors.Is(err, telegramcli.ErrNoResponse) || errors.Is(err, telegramcli.ErrIllegalResponse):
				res.Retries++
				c.log.WarnContext(ctx, "Empty response, retrying", "offset", res.Cursor, "backoff", c.backoff, "error", err)
				if err := c.sleep(ctx, c.backoff); err != nil {
					return res, err
				}
				continue
			case errors.As(err, &remote):
				c.log.ErrorContext(ctx, "History request rejected", "offset", res.Cursor, "code", remote.Code, "error", remote.Message)
				return res, fmt.Errorf("%w: %w", ErrRemote, err)
			default:
				return res, fmt.Errorf("history request failed at offset %d: %w", res.Cursor, err)
			}
		}

		if page.Count == 0 {
			res.Exhausted = true
			c.log.InfoContext(ctx, "History exhausted", "offset", res.Cursor)
			return res, nil
		}

		rows := make([]*database.Message, 0, len(page.Events))
		for _, ev := range page.Events {
			row, err := database.MessageFromEvent(ev)
			if err != nil {
				return res, err
			}
			rows = append(rows, row)
		}

		next := res.Cursor + page.Count
		saved, err := c.store.SavePage(ctx, rows, next)
		if err != nil {
			return res, fmt.Errorf("failed to save page at offset %d: %w", res.Cursor, err)
		}
		for _, id := range saved.Duplicates {
			c.log.InfoContext(ctx, "Collision", "message_id", id)
		}

		res.Pages++
		res.Fetched += page.Count
		res.Inserted += saved.Inserted
		res.Duplicates += len(saved.Duplicates)
		res.Cursor = next

		c.log.InfoContext(ctx, "Page stored",
			"offset", res.Cursor, "returned", page.Count, "added", saved.Inserted, "collisions", len(saved.Duplicates))
	}
}
