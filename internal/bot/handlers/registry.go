package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler is a command handler with its match rule and
// middleware.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands returns the chat commands. Every command is captured
// before it is handled.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	capture := Capture(deps)

	return map[string]RegisteredHandler{
		"/stats": {
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     "stats",
			Handler:     NewStatsHandler(deps),
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Middleware:  []tgbot.Middleware{capture},
		},
		"/report": {
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     "report",
			Handler:     NewReportHandler(deps),
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Middleware:  []tgbot.Middleware{capture, AdminOnly(deps)},
		},
	}
}
