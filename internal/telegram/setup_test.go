package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/tgstats/internal/bot/handlers"
	"github.com/edgard/tgstats/internal/logger"
)

type registration struct {
	pattern string
	handler bot.HandlerFunc
}

type fakeRegistrar struct{ regs []registration }

func (f *fakeRegistrar) RegisterHandler(_ bot.HandlerType, pattern string, _ bot.MatchType, h bot.HandlerFunc, _ ...bot.Middleware) string {
	f.regs = append(f.regs, registration{pattern: pattern, handler: h})
	return pattern
}

func tracing(trace *[]string, name string) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, u *models.Update) {
			*trace = append(*trace, name)
			next(ctx, b, u)
		}
	}
}

func TestRegisterHandlers(t *testing.T) {
	t.Parallel()

	var trace []string
	handler := func(context.Context, *bot.Bot, *models.Update) { trace = append(trace, "handler") }
	reg := &fakeRegistrar{}

	count, err := RegisterHandlers(reg, logger.Discard(), map[string]handlers.RegisteredHandler{
		"/stats":  {Pattern: "stats", Handler: handler, Middleware: []bot.Middleware{tracing(&trace, "outer"), tracing(&trace, "inner")}},
		"/report": {Pattern: "report", Handler: handler},
		"/nil":    {Pattern: "nil"},
	})
	if err != nil {
		t.Fatalf("RegisterHandlers() error = %v", err)
	}
	if count != 2 || len(reg.regs) != 2 {
		t.Fatalf("RegisterHandlers() count = %d, registered %d; want 2", count, len(reg.regs))
	}
	if reg.regs[0].pattern != "report" || reg.regs[1].pattern != "stats" {
		t.Errorf("registration order = %q, %q", reg.regs[0].pattern, reg.regs[1].pattern)
	}

	reg.regs[1].handler(context.Background(), nil, &models.Update{})
	if got := strings.Join(trace, ","); got != "outer,inner,handler" {
		t.Errorf("middleware order = %s", got)
	}
}

func TestNewTelegramBotRequiresToken(t *testing.T) {
	t.Parallel()
	if _, err := NewTelegramBot("", logger.Discard()); !errors.Is(err, ErrNoToken) {
		t.Errorf("NewTelegramBot(\"\") error = %v, want ErrNoToken", err)
	}
}

func TestMaskToken(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{
		"short":                 "...",
		"123456789:ABCDEFGHIJK": "12345678...",
	} {
		if got := maskToken(in); got != want {
			t.Errorf("maskToken(%q) = %q, want %q", in, got, want)
		}
	}
}
