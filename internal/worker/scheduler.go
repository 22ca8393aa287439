package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	applog "tagihan/internal/log"
	"tagihan/internal/services"
)

// Runner performs one reminder pass.
type Runner interface {
	Run(ctx context.Context) (services.ReminderRun, error)
}

// Scheduler runs a Runner on a cron schedule.
type Scheduler struct {
	runner   Runner
	schedule string
	loc      *time.Location

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewScheduler(runner Runner, schedule string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{runner: runner, schedule: schedule, loc: loc}
}

// Start runs one pass immediately and then schedules the rest. Returns an
// error if already running or the schedule does not parse.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("reminder scheduler is already running")
	}

	c := cron.New(cron.WithLocation(s.loc))
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.schedule, err)
	}

	s.RunOnce(ctx)
	c.Start()
	s.cron = c
	s.running = true

	slog.InfoContext(ctx, "Reminder scheduler started",
		"schedule", s.schedule,
		"timezone", s.loc.String(),
		"next_run", c.Entries()[0].Next)
	return nil
}

// RunOnce performs a single pass, logging rather than returning errors so a
// failed run never stops the schedule.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.runner.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "Reminder run failed", applog.FieldError, err)
	}
}

// Stop halts the schedule and waits for an in-flight run, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	done := s.cron.Stop()
	s.running = false
	s.mu.Unlock()

	select {
	case <-done.Done():
		slog.InfoContext(ctx, "Reminder scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reminder scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
