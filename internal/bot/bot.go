// Package bot runs live capture: the Bot API listener and the task
// scheduler share one lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// ErrListenerStopped is returned when the listener exits on its own.
var ErrListenerStopped = errors.New("telegram listener stopped unexpectedly")

// Listener receives updates until ctx is cancelled. *tgbot.Bot satisfies it.
type Listener interface {
	Start(ctx context.Context)
}

// Bot orchestrates the live capture components.
type Bot struct {
	logger    *slog.Logger
	listener  Listener
	scheduler *Scheduler
}

// NewBot creates the orchestrator.
func NewBot(logger *slog.Logger, listener Listener, scheduler *Scheduler) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		listener:  listener,
		scheduler: scheduler,
	}
}

// Run blocks until ctx is cancelled or a component fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting live capture...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...")
		b.listener.Start(gCtx)
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped without context cancellation.")
			return ErrListenerStopped
		}
		return nil
	})

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Live capture stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Live capture stopped gracefully.")
	return nil
}
