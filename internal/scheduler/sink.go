package scheduler

import (
	"context"
	"log/slog"

	"github.com/marketboard/ad-scheduler/internal/domain"
	"github.com/marketboard/ad-scheduler/internal/repository"
)

// LogSink writes audit entries best-effort: a failed insert is logged
// and swallowed so it can never abort the execution being recorded.
type LogSink struct {
	repo   repository.ExecutionLogRepository
	logger *slog.Logger
}

func NewLogSink(repo repository.ExecutionLogRepository, logger *slog.Logger) *LogSink {
	return &LogSink{repo: repo, logger: logger.With("component", "log_sink")}
}

func (s *LogSink) Append(ctx context.Context, entry *domain.ExecutionLog) {
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Error("append execution log",
			"action", entry.Action,
			"status", entry.Status,
			"error", err,
		)
	}
}
