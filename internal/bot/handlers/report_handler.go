package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewReportHandler returns a handler for the admin /report command, which
// regenerates the static report immediately.
func NewReportHandler(deps HandlerDeps) bot.HandlerFunc {
	return reportHandler{deps}.Handle
}

type reportHandler struct {
	deps HandlerDeps
}

func (h reportHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "report")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	text := "Report regenerated."
	if h.deps.Reporter == nil {
		text = "Report generation is not configured."
	} else if _, err := h.deps.Reporter.Generate(ctx, h.deps.ReportOptions); err != nil {
		log.ErrorContext(ctx, "Report generation failed", "error", err)
		text = fmt.Sprintf("Report generation failed: %v", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()
	if _, err := b.SendMessage(sendCtx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send report message", "error", err, "chat_id", chatID)
	}
}
