package bot

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edgard/tgstats/internal/bot/tasks"
	"github.com/edgard/tgstats/internal/config"
	"github.com/edgard/tgstats/internal/logger"
)

type blockingListener struct{ started atomic.Bool }

func (l *blockingListener) Start(ctx context.Context) {
	l.started.Store(true)
	<-ctx.Done()
}

type returningListener struct{}

func (returningListener) Start(context.Context) {}

func newTestScheduler(t *testing.T, cfg *config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc) *Scheduler {
	t.Helper()
	s, err := NewScheduler(logger.Discard(), cfg, taskMap)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	return s
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	listener := &blockingListener{}
	b := NewBot(logger.Discard(), listener, newTestScheduler(t, nil, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if !listener.started.Load() {
		t.Error("listener was not started")
	}
}

func TestRunFailsWhenListenerStops(t *testing.T) {
	t.Parallel()
	b := NewBot(logger.Discard(), returningListener{}, newTestScheduler(t, nil, nil))

	if err := b.Run(context.Background()); !errors.Is(err, ErrListenerStopped) {
		t.Errorf("Run() error = %v, want ErrListenerStopped", err)
	}
}

func TestSchedulerStart(t *testing.T) {
	t.Parallel()
	noop := func(context.Context) error { return nil }
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"sql_maintenance": {Enabled: true, Schedule: "0 0 4 * * *"},
		"report":          {Enabled: false, Schedule: "0 30 4 * * *"},
		"unknown":         {Enabled: true, Schedule: "0 0 5 * * *"},
		"no_schedule":     {Enabled: true},
		"bad_schedule":    {Enabled: true, Schedule: "every day"},
	}}
	s := newTestScheduler(t, cfg, map[string]tasks.ScheduledTaskFunc{
		"sql_maintenance": noop,
		"report":          noop,
		"no_schedule":     noop,
		"bad_schedule":    noop,
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrSchedulerRunning) {
		t.Errorf("second Start() error = %v, want ErrSchedulerRunning", err)
	}
	if got := s.Jobs(); got != 1 {
		t.Errorf("Jobs() = %d, want 1", got)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestSchedulerRunsTasks(t *testing.T) {
	t.Parallel()
	ran := make(chan struct{}, 1)
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"tick": {Enabled: true, Schedule: "* * * * * *"},
	}}
	s := newTestScheduler(t, cfg, map[string]tasks.ScheduledTaskFunc{
		"tick": func(ctx context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return errors.New("logged, not fatal")
		},
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = s.Stop() }()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not run within 5s")
	}
}
