package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/tgstats/internal/database"
)

const (
	dbSaveTimeout      = 5 * time.Second
	sendMessageTimeout = 10 * time.Second
)

type captureHandler struct {
	deps HandlerDeps
}

// NewCaptureHandler returns the default handler: it stores every message
// of the tracked chat.
func NewCaptureHandler(deps HandlerDeps) bot.HandlerFunc {
	return captureHandler{deps}.Handle
}

func (h captureHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "capture")

	msg := update.Message
	if msg == nil {
		log.DebugContext(ctx, "Ignoring update without message", "update_id", update.ID)
		return
	}
	if chatID := h.deps.Config.Telegram.ChatID; chatID != 0 && msg.Chat.ID != chatID {
		log.DebugContext(ctx, "Ignoring message from untracked chat", "chat_id", msg.Chat.ID)
		return
	}

	ev, ok := EventFromMessage(msg)
	if !ok {
		return
	}
	row, err := database.MessageFromEvent(ev)
	if err != nil {
		log.ErrorContext(ctx, "Failed to encode message", "message_id", ev.ID, "error", err)
		return
	}

	saveCtx, cancel := context.WithTimeout(ctx, dbSaveTimeout)
	defer cancel()

	inserted, err := h.deps.Store.SaveMessage(saveCtx, row)
	switch {
	case err != nil:
		log.ErrorContext(ctx, "Failed to save message", "message_id", ev.ID, "error", err)
	case !inserted:
		log.InfoContext(ctx, "Collision", "message_id", ev.ID)
	default:
		log.DebugContext(ctx, "Added", "message_id", ev.ID, "kind", ev.Kind)
	}
}
