package handler

const (
	errInternalServer    = "Internal server error"
	errScheduleNotFound  = "Schedule not found"
	errTimeSlotNotFound  = "Time slot not found"
	errCampaignNotFound  = "Campaign not found"
	errNotCancellable    = "Schedule cannot be cancelled in its current state"
	errInvalidStatus     = "Invalid schedule status"
	errInvalidCursor     = "Invalid pagination cursor"
	errInvalidTimeOfDay  = "Invalid time of day, expected HH:MM"
	errInvalidSlotWindow = "Slot start must be before slot end"
	errInvalidWeekdays   = "Weekdays must be a non-empty subset of 0..6"
	errInvalidDate       = "Invalid date, expected YYYY-MM-DD"
)
