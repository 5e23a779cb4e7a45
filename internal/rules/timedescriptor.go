package rules

import "time"

// TimeDescriptor is the time-based trigger specification of a rule: calendar
// windows (level-triggered activation) and time event points (edge-triggered
// firing).
type TimeDescriptor struct {
	CalendarItems  []CalendarItem  `json:"calendarItems,omitempty"`
	TimeEventItems []TimeEventItem `json:"timeEventItems,omitempty"`
}

// IsEmpty reports whether the rule is not time-based at all.
func (d TimeDescriptor) IsEmpty() bool {
	return len(d.CalendarItems) == 0 && len(d.TimeEventItems) == 0
}

// IsValid reports whether the descriptor holds either calendar windows or
// time event points, but not both: windows are level-triggered and points are
// edge-triggered, and a single rule cannot mix the two.
func (d TimeDescriptor) IsValid() bool {
	return (len(d.CalendarItems) == 0) != (len(d.TimeEventItems) == 0)
}

// ActiveAt reports whether now falls inside any of the calendar windows.
func (d TimeDescriptor) ActiveAt(now time.Time) bool {
	for _, item := range d.CalendarItems {
		if item.ActiveAt(now) {
			return true
		}
	}
	return false
}

// TriggersBetween reports whether any time event instance falls in (prev, now].
func (d TimeDescriptor) TriggersBetween(prev, now time.Time) bool {
	for _, item := range d.TimeEventItems {
		if item.TriggersBetween(prev, now) {
			return true
		}
	}
	return false
}
