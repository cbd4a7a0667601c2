package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/tgstats/internal/bot/tasks"
	"github.com/edgard/tgstats/internal/config"
	"github.com/edgard/tgstats/internal/logger"
)

// ErrSchedulerRunning is returned by Start on a running scheduler.
var ErrSchedulerRunning = errors.New("scheduler is already running")

// Scheduler runs the configured tasks on their cron schedules.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	taskMap   map[string]tasks.ScheduledTaskFunc

	// ctx is handed to every task run and cancelled by Stop.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
	jobs    int
}

// NewScheduler creates a scheduler. Its internal log lines go through
// logger as well.
func NewScheduler(log *slog.Logger, cfg *config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "scheduler")

	s, err := gocron.NewScheduler(gocron.WithLogger(logger.Gocron(log)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		logger:    log,
		cfg:       cfg,
		taskMap:   taskMap,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func (s *Scheduler) run(name string, task tasks.ScheduledTaskFunc) {
	s.logger.Info("Running scheduled task", "task_name", name)
	start := time.Now()
	if err := task(s.ctx); err != nil {
		s.logger.Error("Scheduled task failed", "task_name", name, "error", err)
	}
	s.logger.Info("Finished scheduled task", "task_name", name, "duration", time.Since(start))
}

// Start schedules every enabled task with a known name and starts ticking.
// Misconfigured tasks are logged and skipped.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerRunning
	}

	var names []string
	if s.cfg != nil {
		for name := range s.cfg.Tasks {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		s.logger.Warn("No scheduler tasks configured.")
	}

	for _, name := range names {
		taskCfg := s.cfg.Tasks[name]
		if !taskCfg.Enabled {
			s.logger.Info("Skipping disabled task", "task_name", name)
			continue
		}
		task, ok := s.taskMap[name]
		if !ok {
			s.logger.Warn("Scheduled task configured but not available, skipping", "task_name", name)
			continue
		}
		if taskCfg.Schedule == "" {
			s.logger.Warn("Scheduled task enabled but has empty schedule, skipping", "task_name", name)
			continue
		}

		_, err := s.scheduler.NewJob(
			gocron.CronJob(taskCfg.Schedule, true),
			gocron.NewTask(s.run, name, task),
			gocron.WithName(name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			s.logger.Error("Failed to schedule task", "task_name", name, "schedule", taskCfg.Schedule, "error", err)
			continue
		}
		s.logger.Info("Scheduled task", "task_name", name, "schedule", taskCfg.Schedule)
		s.jobs++
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "tasks_scheduled", s.jobs)
	return nil
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs
}

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cancel()
	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}
	s.running = false
	return err
}
