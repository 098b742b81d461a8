package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrTimeSlotNotFound  = errors.New("time slot not found")
	ErrInvalidTimeOfDay  = errors.New("invalid time of day, expected HH:MM")
	ErrInvalidSlotWindow = errors.New("slot start must be before slot end")
	ErrInvalidWeekdays   = errors.New("weekdays must be a non-empty subset of 0..6")
)

// TimeOfDay is a minute-of-day clock value (0 = midnight). Slot
// boundaries are stored as "HH:MM" strings; this type keeps the
// comparisons integer-based.
type TimeOfDay int

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%2d:%2d", &hh, &mm); err != nil {
		return 0, ErrInvalidTimeOfDay
	}
	// Sscanf happily reads signed numbers, so "-1:30" and "09:-5" parse;
	// reject any negative component along with out-of-range ones.
	if len(s) != 5 || s[2] != ':' || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, ErrInvalidTimeOfDay
	}
	return TimeOfDay(hh*60 + mm), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// On anchors the time of day to a calendar date in the date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(t)/60, int(t)%60, 0, 0, date.Location())
}

// TimeSlot is a recurring weekly availability window for one campaign,
// independent of calendar date.
type TimeSlot struct {
	ID         string
	CampaignID string
	Start      TimeOfDay
	End        TimeOfDay
	Weekdays   []int // 0 = Sunday .. 6 = Saturday
	Priority   int
	Active     bool
	CreatedAt  time.Time
}

func (s *TimeSlot) Validate() error {
	if s.Start >= s.End {
		return ErrInvalidSlotWindow
	}
	if len(s.Weekdays) == 0 {
		return ErrInvalidWeekdays
	}
	for _, d := range s.Weekdays {
		if d < 0 || d > 6 {
			return ErrInvalidWeekdays
		}
	}
	return nil
}

func (s *TimeSlot) OnWeekday(d time.Weekday) bool {
	for _, wd := range s.Weekdays {
		if wd == int(d) {
			return true
		}
	}
	return false
}

// Overlaps tests the half-open interval [Start, End) against
// [start, end): the windows overlap iff Start < end && End > start.
func (s *TimeSlot) Overlaps(start, end TimeOfDay) bool {
	return s.Start < end && s.End > start
}

// Contains reports whether t falls inside the slot's serving window.
// Both boundaries are inclusive: a sweep firing exactly at the end
// minute still executes the slot.
func (s *TimeSlot) Contains(t TimeOfDay) bool {
	return s.Start <= t && t <= s.End
}
