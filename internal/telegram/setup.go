// Package telegram handles the setup and registration of Telegram bot handlers.
package telegram

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-telegram/bot"

	"github.com/edgard/tgstats/internal/bot/handlers"
)

// ErrNoToken is returned when live capture is requested without a token.
var ErrNoToken = errors.New("telegram bot token cannot be empty")

// NewTelegramBot creates a Bot API client.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created", "token", maskToken(token))
	return b, nil
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "..."
	}
	return token[:8] + "..."
}

// applyMiddleware wraps handler so that the first middleware is outermost.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// handlerRegistrar is the registration half of *bot.Bot.
type handlerRegistrar interface {
	RegisterHandler(handlerType bot.HandlerType, pattern string, matchType bot.MatchType, f bot.HandlerFunc, m ...bot.Middleware) string
}

// RegisterHandlers registers command handlers in name order and returns how
// many were registered.
func RegisterHandlers(b handlerRegistrar, logger *slog.Logger, registered map[string]handlers.RegisteredHandler) (int, error) {
	if b == nil {
		return 0, errors.New("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)

	count := 0
	for _, name := range names {
		h := registered[name]
		if h.Handler == nil {
			log.Warn("Skipping registration for nil handler", "command", name)
			continue
		}
		b.RegisterHandler(h.HandlerType, h.Pattern, h.MatchType, applyMiddleware(h.Handler, h.Middleware))
		log.Debug("Registered handler", "command", name, "match_type", h.MatchType, "middleware_count", len(h.Middleware))
		count++
	}

	log.Info("Registered Telegram handlers", "count", count)
	return count, nil
}
