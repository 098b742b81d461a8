package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marketboard/ad-scheduler/internal/domain"
	"github.com/marketboard/ad-scheduler/internal/metrics"
	"github.com/marketboard/ad-scheduler/internal/repository"
	"github.com/robfig/cron/v3"
)

type TaskName string

const (
	TaskMainSweep    TaskName = "main_sweep"
	TaskRetrySweep   TaskName = "retry_sweep"
	TaskCleanupSweep TaskName = "cleanup_sweep"
)

// ScheduleRunner is what a sweep hands due schedules to. Satisfied by
// *Engine.
type ScheduleRunner interface {
	Run(ctx context.Context, s *domain.Schedule)
}

type ClockConfig struct {
	MainSweepSpec    string // default "@every 1m"
	RetrySweepSpec   string // default "@every 5m"
	CleanupSweepSpec string // default "@every 24h"
	BatchSize        int
	Concurrency      int
	RetentionDays    int
}

func (c ClockConfig) withDefaults() ClockConfig {
	if c.MainSweepSpec == "" {
		c.MainSweepSpec = "@every 1m"
	}
	if c.RetrySweepSpec == "" {
		c.RetrySweepSpec = "@every 5m"
	}
	if c.CleanupSweepSpec == "" {
		c.CleanupSweepSpec = "@every 24h"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
	return c
}

// task is one named periodic sweep. The running flag is the
// non-reentrancy guard: a tick that finds the previous sweep still in
// flight is skipped, so a slow sweep can never race itself over the
// same due rows.
type task struct {
	name    TaskName
	spec    string
	sweep   func(ctx context.Context)
	running atomic.Bool
}

type ClockStatus struct {
	Running     bool          `json:"running"`
	ActiveTasks []string      `json:"active_tasks"`
	Uptime      time.Duration `json:"uptime"`
}

// TriggerClock owns the three periodic sweeps and their shared
// start/stop lifecycle.
type TriggerClock struct {
	schedules repository.ScheduleRepository
	sink      *LogSink
	engine    ScheduleRunner
	logger    *slog.Logger
	cfg       ClockConfig

	cron  *cron.Cron
	tasks []*task

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	started   bool
	startedAt time.Time

	now func() time.Time
}

func NewTriggerClock(
	schedules repository.ScheduleRepository,
	sink *LogSink,
	engine ScheduleRunner,
	logger *slog.Logger,
	cfg ClockConfig,
) (*TriggerClock, error) {
	c := &TriggerClock{
		schedules: schedules,
		sink:      sink,
		engine:    engine,
		logger:    logger.With("component", "trigger_clock"),
		cfg:       cfg.withDefaults(),
		cron:      cron.New(),
		now:       time.Now,
	}

	c.tasks = []*task{
		{name: TaskMainSweep, spec: c.cfg.MainSweepSpec, sweep: c.mainSweep},
		{name: TaskRetrySweep, spec: c.cfg.RetrySweepSpec, sweep: c.retrySweep},
		{name: TaskCleanupSweep, spec: c.cfg.CleanupSweepSpec, sweep: c.cleanupSweep},
	}
	for _, t := range c.tasks {
		if _, err := c.cron.AddFunc(t.spec, func() { c.tick(t) }); err != nil {
			return nil, fmt.Errorf("register %s (%q): %w", t.name, t.spec, err)
		}
	}
	return c, nil
}

// Start arms all three tasks. Idempotent: calling it on a running
// clock is a no-op reported through the returned message.
func (c *TriggerClock) Start() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return "scheduler is already running"
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.started = true
	c.startedAt = c.now()
	c.cron.Start()

	metrics.ClockStartTime.SetToCurrentTime()
	c.logger.Info("trigger clock started",
		"main_sweep", c.cfg.MainSweepSpec,
		"retry_sweep", c.cfg.RetrySweepSpec,
		"cleanup_sweep", c.cfg.CleanupSweepSpec,
	)
	return "scheduler started"
}

// Stop disarms all three tasks and waits for in-flight sweeps to
// drain. Idempotent like Start.
func (c *TriggerClock) Stop() string {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return "scheduler is not running"
	}
	c.started = false
	cancel := c.cancel
	c.mu.Unlock()

	drained := c.cron.Stop()
	select {
	case <-drained.Done():
	case <-time.After(30 * time.Second):
		c.logger.Warn("timed out waiting for sweeps to drain")
	}
	cancel()

	metrics.ClockStopsTotal.Inc()
	c.logger.Info("trigger clock stopped")
	return "scheduler stopped"
}

func (c *TriggerClock) Status() ClockStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := ClockStatus{Running: c.started, ActiveTasks: []string{}}
	if c.started {
		for _, t := range c.tasks {
			status.ActiveTasks = append(status.ActiveTasks, string(t.name))
		}
		status.Uptime = c.now().Sub(c.startedAt)
	}
	return status
}

func (c *TriggerClock) tick(t *task) {
	if !t.running.CompareAndSwap(false, true) {
		c.logger.Warn("previous sweep still in flight, skipping tick", "task", t.name)
		metrics.SweepTicksSkipped.WithLabelValues(string(t.name)).Inc()
		return
	}
	defer t.running.Store(false)

	start := time.Now()
	t.sweep(c.context())
	metrics.SweepDuration.WithLabelValues(string(t.name)).Observe(time.Since(start).Seconds())
}

func (c *TriggerClock) context() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx != nil {
		return c.ctx
	}
	return context.Background()
}

// mainSweep finds schedules whose slot window covers this minute and
// runs them through the engine. Independent schedules go through a
// bounded pool; each schedule appears at most once per sweep and
// sweeps of the same task never overlap, so per-row writes stay
// serialized.
func (c *TriggerClock) mainSweep(ctx context.Context) {
	due, err := c.schedules.DueForExecution(ctx, c.now(), c.cfg.BatchSize)
	if err != nil {
		c.systemError(ctx, TaskMainSweep, "select due schedules", err)
		return
	}
	if len(due) == 0 {
		return
	}
	c.logger.Info("main sweep picked up schedules", "count", len(due))

	sem := make(chan struct{}, c.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, s := range due {
		sem <- struct{}{}
		wg.Add(1)
		go func(s *domain.Schedule) {
			defer wg.Done()
			defer func() { <-sem }()
			c.engine.Run(ctx, s)
		}(s)
	}
	wg.Wait()
}

// retrySweep re-runs failed schedules whose backoff has elapsed,
// sequentially.
func (c *TriggerClock) retrySweep(ctx context.Context) {
	due, err := c.schedules.DueForRetry(ctx, c.now(), c.cfg.BatchSize)
	if err != nil {
		c.systemError(ctx, TaskRetrySweep, "select retry-due schedules", err)
		return
	}
	if len(due) == 0 {
		return
	}
	c.logger.Info("retry sweep picked up schedules", "count", len(due))

	for _, s := range due {
		c.sink.Append(ctx, &domain.ExecutionLog{
			ScheduleID: &s.ID,
			CampaignID: &s.CampaignID,
			Action:     domain.ActionRetry,
			Status:     domain.LogPending,
			Message:    fmt.Sprintf("retry attempt %d of %d", s.RetryCount, s.MaxRetries),
		})
		c.engine.Run(ctx, s)
	}
}

// cleanupSweep deletes terminal schedules past the retention window.
func (c *TriggerClock) cleanupSweep(ctx context.Context) {
	cutoff := c.now().AddDate(0, 0, -c.cfg.RetentionDays)

	deleted, err := c.schedules.DeleteExpired(ctx, cutoff)
	if err != nil {
		c.systemError(ctx, TaskCleanupSweep, "delete expired schedules", err)
		return
	}
	if deleted > 0 {
		metrics.CleanupDeletedTotal.Add(float64(deleted))
		c.logger.Info("cleanup sweep deleted schedules", "count", deleted, "cutoff", cutoff)
	}
}

// systemError records a sweep-level failure as a system-scoped log
// entry (no schedule attached). The sweep ends; the clock keeps
// ticking.
func (c *TriggerClock) systemError(ctx context.Context, name TaskName, msg string, err error) {
	c.logger.Error(msg, "task", name, "error", err)
	metrics.SweepErrorsTotal.WithLabelValues(string(name)).Inc()
	c.sink.Append(ctx, &domain.ExecutionLog{
		Action:       domain.ActionError,
		Status:       domain.LogFailed,
		Message:      fmt.Sprintf("%s: %s", name, msg),
		ErrorDetails: map[string]any{"error": err.Error()},
	})
}
