package scheduler_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/marketboard/ad-scheduler/internal/scheduler"
)

var failure = errors.New("renderer unavailable")

func TestDecideRetry_LinearBackoff(t *testing.T) {
	now := time.Date(2025, time.June, 16, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		retryCount int
		wantCount  int
		wantDelay  time.Duration
	}{
		{0, 1, 5 * time.Minute},
		{1, 2, 10 * time.Minute},
		{2, 3, 15 * time.Minute},
	}
	for _, c := range cases {
		d := scheduler.DecideRetry(now, c.retryCount, scheduler.DefaultMaxRetries, failure)

		if !d.Retryable {
			t.Errorf("retryCount=%d: want retryable", c.retryCount)
			continue
		}
		if d.RetryCount != c.wantCount {
			t.Errorf("retryCount=%d: new count = %d, want %d", c.retryCount, d.RetryCount, c.wantCount)
		}
		if d.NextRetryAt == nil {
			t.Errorf("retryCount=%d: NextRetryAt is nil", c.retryCount)
			continue
		}
		if got := d.NextRetryAt.Sub(now); got != c.wantDelay {
			t.Errorf("retryCount=%d: delay = %v, want %v", c.retryCount, got, c.wantDelay)
		}
		if d.Reason != failure.Error() {
			t.Errorf("retryCount=%d: reason = %q, want %q", c.retryCount, d.Reason, failure.Error())
		}
	}
}

func TestDecideRetry_FourthFailureIsTerminal(t *testing.T) {
	now := time.Now()

	d := scheduler.DecideRetry(now, 3, scheduler.DefaultMaxRetries, failure)

	if d.Retryable {
		t.Fatal("want terminal decision after max retries")
	}
	if d.RetryCount != 3 {
		t.Errorf("terminal decision must not grow the counter: got %d, want 3", d.RetryCount)
	}
	if d.NextRetryAt != nil {
		t.Errorf("terminal decision must not set NextRetryAt, got %v", d.NextRetryAt)
	}
	if !strings.Contains(d.Reason, "max retries reached") {
		t.Errorf("reason = %q, want mention of max retries", d.Reason)
	}
	if !strings.Contains(d.Reason, failure.Error()) {
		t.Errorf("reason = %q, want original cause preserved", d.Reason)
	}
}

func TestDecideRetry_ZeroBudgetIsImmediatelyTerminal(t *testing.T) {
	d := scheduler.DecideRetry(time.Now(), 0, 0, failure)
	if d.Retryable {
		t.Fatal("maxRetries=0 must never retry")
	}
}
