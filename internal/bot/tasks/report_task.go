package tasks

import (
	"context"
	"fmt"
	"time"
)

// newReportTask regenerates the static report from everything captured so
// far.
func newReportTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", Report)

	return func(ctx context.Context) error {
		start := time.Now()
		data, err := deps.Reporter.Generate(ctx, deps.ReportOptions)
		if err != nil {
			log.ErrorContext(ctx, "Report task failed", "error", err, "duration", time.Since(start))
			return fmt.Errorf("report generation failed: %w", err)
		}
		log.InfoContext(ctx, "Report regenerated",
			"dir", deps.ReportOptions.Dir, "messages", data.General.Messages, "duration", time.Since(start))
		return nil
	}
}
