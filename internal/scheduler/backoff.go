package scheduler

import (
	"fmt"
	"time"
)

// DefaultMaxRetries is the fixed retry budget for every schedule.
const DefaultMaxRetries = 3

// retryStep is the base delay between retries. The delay grows
// linearly: 5m, 10m, 15m for the 1st, 2nd and 3rd retry.
const retryStep = 5 * time.Minute

// RetryDecision is the outcome of applying the retry policy to one
// failed execution.
type RetryDecision struct {
	Retryable bool
	// RetryCount is the schedule's new retry counter. On a terminal
	// decision the counter is left where it was; it never exceeds the
	// maximum.
	RetryCount  int
	NextRetryAt *time.Time
	Reason      string
}

// DecideRetry is a pure function: given the current retry counter and
// the failure, decide whether the schedule gets another attempt and
// when. No I/O and no clock reads: now is passed in.
func DecideRetry(now time.Time, retryCount, maxRetries int, cause error) RetryDecision {
	if retryCount+1 > maxRetries {
		return RetryDecision{
			Retryable:  false,
			RetryCount: retryCount,
			Reason:     fmt.Sprintf("max retries reached, last error: %v", cause),
		}
	}

	next := retryCount + 1
	at := now.Add(time.Duration(next) * retryStep)
	return RetryDecision{
		Retryable:   true,
		RetryCount:  next,
		NextRetryAt: &at,
		Reason:      cause.Error(),
	}
}
