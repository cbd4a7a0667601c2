package tasks

import (
	"context"
)

// ScheduledTaskFunc is the signature of a scheduled task. The context is
// cancelled when the scheduler shuts down.
type ScheduledTaskFunc func(ctx context.Context) error

// Task names as used in the scheduler configuration.
const (
	SQLMaintenance = "sql_maintenance"
	Report         = "report"
)

// RegisterAllTasks returns the available tasks keyed by configuration name.
// The report task is only available with a reporter.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		SQLMaintenance: newSQLMaintenanceTask(deps),
	}
	if deps.Reporter != nil {
		tasks[Report] = newReportTask(deps)
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
