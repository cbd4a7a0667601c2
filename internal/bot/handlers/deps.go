package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/tgstats/internal/config"
	"github.com/edgard/tgstats/internal/database"
	"github.com/edgard/tgstats/internal/report"
)

// ReportGenerator writes the static report.
type ReportGenerator interface {
	Generate(ctx context.Context, opts report.Options) (*report.Data, error)
}

// HandlerDeps provides dependencies for Telegram handlers.
type HandlerDeps struct {
	Logger        *slog.Logger
	Config        *config.Config
	Store         database.Store
	Reporter      ReportGenerator
	ReportOptions report.Options
}
