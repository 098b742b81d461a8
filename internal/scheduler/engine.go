package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marketboard/ad-scheduler/internal/domain"
	"github.com/marketboard/ad-scheduler/internal/metrics"
	"github.com/marketboard/ad-scheduler/internal/repository"
)

// Engine drives one schedule through Running → Completed/Failed. It is
// fire-and-forget from the sweep's point of view: every failure is
// captured in schedule and log rows, never returned to the caller, so
// a single bad schedule cannot abort a sweep.
type Engine struct {
	schedules repository.ScheduleRepository
	slots     repository.TimeSlotRepository
	campaigns repository.CampaignRepository
	sink      *LogSink
	runner    CampaignRunner
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewEngine(
	schedules repository.ScheduleRepository,
	slots repository.TimeSlotRepository,
	campaigns repository.CampaignRepository,
	sink *LogSink,
	runner CampaignRunner,
	logger *slog.Logger,
	timeout time.Duration,
) *Engine {
	return &Engine{
		schedules: schedules,
		slots:     slots,
		campaigns: campaigns,
		sink:      sink,
		runner:    runner,
		logger:    logger.With("component", "engine"),
		timeout:   timeout,
		now:       time.Now,
	}
}

func (e *Engine) Run(ctx context.Context, s *domain.Schedule) {
	metrics.SchedulesInFlight.Inc()
	defer metrics.SchedulesInFlight.Dec()

	if s.Terminal() || !domain.CanTransition(s.Status, domain.StatusRunning) {
		e.logger.Warn("schedule not runnable, skipping", "schedule_id", s.ID, "status", s.Status)
		return
	}

	// Compare-and-set against the status we read: if another writer got
	// there first the update affects zero rows and we walk away.
	claimed, err := e.schedules.MarkRunning(ctx, s.ID, []domain.ScheduleStatus{s.Status}, e.now())
	if err != nil {
		e.logger.Error("mark schedule running", "schedule_id", s.ID, "error", err)
		return
	}
	if !claimed {
		e.logger.Debug("schedule already claimed, skipping", "schedule_id", s.ID)
		metrics.ExecutionsTotal.WithLabelValues("skipped").Inc()
		return
	}

	e.sink.Append(ctx, &domain.ExecutionLog{
		ScheduleID: &s.ID,
		CampaignID: &s.CampaignID,
		Action:     domain.ActionStart,
		Status:     domain.LogSuccess,
		Message:    fmt.Sprintf("campaign %s started in slot %s", s.CampaignID, s.TimeSlotID),
	})
	e.logger.Info("executing schedule", "schedule_id", s.ID, "campaign_id", s.CampaignID, "attempt", s.RetryCount+1)

	start := e.now()
	execErr := e.execute(ctx, s)
	duration := e.now().Sub(start)

	if execErr == nil {
		e.complete(ctx, s, duration)
		return
	}
	e.fail(ctx, s, execErr, duration)
}

// execute loads the campaign/slot pair and invokes the runner under
// the per-schedule timeout that bounds worst-case sweep duration.
func (e *Engine) execute(ctx context.Context, s *domain.Schedule) error {
	campaign, err := e.campaigns.GetByID(ctx, s.CampaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	slot, err := e.slots.GetByID(ctx, s.TimeSlotID)
	if err != nil {
		return fmt.Errorf("load time slot: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.runner.Execute(runCtx, campaign, slot)
}

func (e *Engine) complete(ctx context.Context, s *domain.Schedule, duration time.Duration) {
	ok, err := e.schedules.MarkCompleted(ctx, s.ID, e.now())
	if err != nil {
		e.logger.Error("mark schedule completed", "schedule_id", s.ID, "error", err)
		return
	}
	if !ok {
		e.logger.Warn("schedule no longer running on completion", "schedule_id", s.ID)
		return
	}

	e.sink.Append(ctx, &domain.ExecutionLog{
		ScheduleID: &s.ID,
		CampaignID: &s.CampaignID,
		Action:     domain.ActionStop,
		Status:     domain.LogSuccess,
		Message:    fmt.Sprintf("campaign %s completed", s.CampaignID),
		Metrics: map[string]any{
			"duration_ms": duration.Milliseconds(),
			"retry_count": s.RetryCount,
		},
	})
	metrics.ExecutionsTotal.WithLabelValues("completed").Inc()
	metrics.ExecutionDuration.WithLabelValues("completed").Observe(duration.Seconds())
	e.logger.Info("schedule completed", "schedule_id", s.ID, "duration", duration)
}

func (e *Engine) fail(ctx context.Context, s *domain.Schedule, cause error, duration time.Duration) {
	decision := DecideRetry(e.now(), s.RetryCount, s.MaxRetries, cause)

	if _, err := e.schedules.MarkFailed(ctx, s.ID, decision.RetryCount, decision.NextRetryAt, decision.Reason); err != nil {
		e.logger.Error("mark schedule failed", "schedule_id", s.ID, "error", err)
	}

	details := map[string]any{
		"error":       cause.Error(),
		"retry_count": decision.RetryCount,
		"retryable":   decision.Retryable,
	}
	if decision.NextRetryAt != nil {
		details["next_retry_at"] = decision.NextRetryAt.Format(time.RFC3339)
	}
	e.sink.Append(ctx, &domain.ExecutionLog{
		ScheduleID:   &s.ID,
		CampaignID:   &s.CampaignID,
		Action:       domain.ActionError,
		Status:       domain.LogFailed,
		Message:      decision.Reason,
		ErrorDetails: details,
	})

	outcome := "failed"
	if decision.Retryable {
		outcome = "retry"
		e.logger.Warn("schedule failed, will retry",
			"schedule_id", s.ID,
			"error", cause,
			"retry_count", decision.RetryCount,
			"max_retries", s.MaxRetries,
			"next_retry_at", decision.NextRetryAt,
		)
	} else {
		e.logger.Warn("schedule permanently failed", "schedule_id", s.ID, "error", cause)
	}
	metrics.ExecutionsTotal.WithLabelValues(outcome).Inc()
	metrics.ExecutionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}
