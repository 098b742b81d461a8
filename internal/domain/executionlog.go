package domain

import "time"

type LogAction string

const (
	ActionStart LogAction = "START"
	ActionStop  LogAction = "STOP"
	ActionError LogAction = "ERROR"
	ActionRetry LogAction = "RETRY"
)

type LogStatus string

const (
	LogSuccess LogStatus = "SUCCESS"
	LogFailed  LogStatus = "FAILED"
	LogPending LogStatus = "PENDING"
)

// ExecutionLog is an immutable record of one lifecycle event. Rows are
// append-only; nothing in this core updates or deletes them.
//
// ScheduleID and CampaignID are nil for system-level sweep errors that
// have no associated row.
type ExecutionLog struct {
	ID         string
	ScheduleID *string
	CampaignID *string
	Action     LogAction
	Status     LogStatus
	Message    string

	// ErrorDetails is present only when Status is FAILED; Metrics only
	// when Status is SUCCESS.
	ErrorDetails map[string]any
	Metrics      map[string]any

	CreatedAt time.Time
}
