package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/tgstats/internal/stats"
)

const statsTopTalkers = 5

// NewStatsHandler returns a handler for the /stats command.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps: deps, now: time.Now}.Handle
}

type statsHandler struct {
	deps HandlerDeps
	now  func() time.Time
}

func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /stats command", "chat_id", chatID)

	text, err := h.reply(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to compute stats", "error", err)
		text = "Statistics are not available right now."
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()
	if _, err := b.SendMessage(sendCtx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send stats message", "error", err, "chat_id", chatID)
	}
}

func (h statsHandler) reply(ctx context.Context) (string, error) {
	g, err := stats.GeneralNumbers(ctx, h.deps.Store, time.Local)
	if err != nil {
		return "", err
	}
	week, err := stats.Talkers(ctx, h.deps.Store, stats.Since(h.now(), 7*24*time.Hour))
	if err != nil {
		return "", err
	}
	return formatStats(g, stats.Top(week, statsTopTalkers)), nil
}

func formatStats(g stats.General, talkers []stats.Talker) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Messages: %d (%d words)\n", g.Messages, g.Words)
	fmt.Fprintf(&sb, "Talkers: %d\n", g.Talkers)
	fmt.Fprintf(&sb, "Media: %.1f%%\n", g.MediaShare())

	var total int
	for _, t := range talkers {
		total += t.Messages
	}
	if len(talkers) == 0 || total == 0 {
		sb.WriteString("Nobody talked this week.")
		return sb.String()
	}

	sb.WriteString("\nTop talkers this week:")
	for i, t := range talkers {
		fmt.Fprintf(&sb, "\n%d. %s: %d", i+1, t.Name, t.Messages)
	}
	return sb.String()
}
