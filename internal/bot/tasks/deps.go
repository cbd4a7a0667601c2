// Package tasks implements the periodic jobs run during live capture.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/tgstats/internal/database"
	"github.com/edgard/tgstats/internal/report"
)

// ReportGenerator writes the static report.
type ReportGenerator interface {
	Generate(ctx context.Context, opts report.Options) (*report.Data, error)
}

// TaskDeps contains the dependencies of scheduled tasks.
type TaskDeps struct {
	Logger        *slog.Logger
	Store         database.Store
	Reporter      ReportGenerator
	ReportOptions report.Options
}
