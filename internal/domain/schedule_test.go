package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/marketboard/ad-scheduler/internal/domain"
)

func TestParseScheduleStatus(t *testing.T) {
	for _, s := range []string{"scheduled", "running", "completed", "failed", "cancelled"} {
		got, err := domain.ParseScheduleStatus(s)
		if err != nil {
			t.Errorf("ParseScheduleStatus(%q): unexpected error %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseScheduleStatus(%q) = %q", s, got)
		}
	}

	if _, err := domain.ParseScheduleStatus("paused"); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Errorf("want ErrInvalidStatus, got %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to domain.ScheduleStatus }{
		{domain.StatusScheduled, domain.StatusRunning},
		{domain.StatusScheduled, domain.StatusCancelled},
		{domain.StatusRunning, domain.StatusCompleted},
		{domain.StatusRunning, domain.StatusFailed},
		{domain.StatusFailed, domain.StatusRunning},
		{domain.StatusFailed, domain.StatusCancelled},
	}
	for _, c := range allowed {
		if !domain.CanTransition(c.from, c.to) {
			t.Errorf("CanTransition(%s, %s) = false, want true", c.from, c.to)
		}
	}

	denied := []struct{ from, to domain.ScheduleStatus }{
		{domain.StatusScheduled, domain.StatusCompleted},
		{domain.StatusScheduled, domain.StatusFailed},
		{domain.StatusRunning, domain.StatusCancelled},
		{domain.StatusRunning, domain.StatusScheduled},
		{domain.StatusFailed, domain.StatusCompleted},
	}
	for _, c := range denied {
		if domain.CanTransition(c.from, c.to) {
			t.Errorf("CanTransition(%s, %s) = true, want false", c.from, c.to)
		}
	}
}

// Completed and Cancelled admit no outgoing transition at all.
func TestCanTransition_TerminalStatesAreClosed(t *testing.T) {
	all := []domain.ScheduleStatus{
		domain.StatusScheduled,
		domain.StatusRunning,
		domain.StatusCompleted,
		domain.StatusFailed,
		domain.StatusCancelled,
	}
	for _, from := range []domain.ScheduleStatus{domain.StatusCompleted, domain.StatusCancelled} {
		for _, to := range all {
			if domain.CanTransition(from, to) {
				t.Errorf("CanTransition(%s, %s) = true, want false", from, to)
			}
		}
	}
}

func TestScheduleStatus_Cancellable(t *testing.T) {
	cases := []struct {
		status domain.ScheduleStatus
		want   bool
	}{
		{domain.StatusScheduled, true},
		{domain.StatusFailed, true},
		{domain.StatusRunning, false},
		{domain.StatusCompleted, false},
		{domain.StatusCancelled, false},
	}
	for _, c := range cases {
		if got := c.status.Cancellable(); got != c.want {
			t.Errorf("%s.Cancellable() = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestSchedule_Terminal(t *testing.T) {
	retryAt := time.Now().Add(5 * time.Minute)
	cases := []struct {
		name string
		s    domain.Schedule
		want bool
	}{
		{"completed", domain.Schedule{Status: domain.StatusCompleted}, true},
		{"cancelled", domain.Schedule{Status: domain.StatusCancelled}, true},
		{"failed with retries left", domain.Schedule{Status: domain.StatusFailed, RetryCount: 1, MaxRetries: 3}, false},
		{"failed exhausted", domain.Schedule{Status: domain.StatusFailed, RetryCount: 3, MaxRetries: 3}, true},
		{"failed awaiting final retry", domain.Schedule{Status: domain.StatusFailed, RetryCount: 3, MaxRetries: 3, NextRetryAt: &retryAt}, false},
		{"scheduled", domain.Schedule{Status: domain.StatusScheduled}, false},
		{"running", domain.Schedule{Status: domain.StatusRunning}, false},
	}
	for _, c := range cases {
		if got := c.s.Terminal(); got != c.want {
			t.Errorf("%s: Terminal() = %v, want %v", c.name, got, c.want)
		}
	}
}
