// Package handlers contains the live capture handlers, the chat commands
// and their registration.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const unauthorizedMsg = "You are not allowed to do that."

// AdminOnly lets only the configured admin through. Everyone else gets a
// refusal and the handler chain stops.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				return
			}

			userID := update.Message.From.ID
			if adminID := deps.Config.Telegram.AdminID; adminID == 0 || userID != adminID {
				chatID := update.Message.Chat.ID
				log := deps.Logger.With("middleware", "AdminOnly")
				log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID)

				if _, err := bot.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: unauthorizedMsg}); err != nil {
					log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", chatID)
				}
				return
			}

			next(ctx, bot, update)
		}
	}
}

// Capture stores the message of every update before passing it on, so
// commands are counted like any other message.
func Capture(deps HandlerDeps) tgbot.Middleware {
	c := captureHandler{deps}
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			c.Handle(ctx, bot, update)
			next(ctx, bot, update)
		}
	}
}
