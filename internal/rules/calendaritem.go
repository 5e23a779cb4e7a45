package rules

import "time"

// CalendarItem describes a time window during which a rule is active: either
// anchored to one absolute date/time, or recurring at a start time according
// to its RepeatingOption.
type CalendarItem struct {
	DateTime  time.Time       `json:"dateTime,omitempty"`
	StartTime *TimeOfDay      `json:"startTime,omitempty"`
	Duration  time.Duration   `json:"duration"`
	Repeating RepeatingOption `json:"repeating,omitempty"`
}

// IsValid requires a positive duration and exactly one of an absolute
// date/time or a recurring start time. An anchored item cannot also repeat.
func (c CalendarItem) IsValid() bool {
	if c.Duration <= 0 {
		return false
	}
	anchored := !c.DateTime.IsZero()
	recurring := c.StartTime != nil
	if anchored == recurring {
		return false
	}
	if anchored && !c.Repeating.IsEmpty() {
		return false
	}
	return true
}

// ActiveAt reports whether now falls inside an instance of the window. The
// window start is inclusive, the end exclusive, so back-to-back windows don't
// overlap. Windows may span midnight, so the instance starting the previous
// day is considered as well.
func (c CalendarItem) ActiveAt(now time.Time) bool {
	if !c.DateTime.IsZero() {
		return !now.Before(c.DateTime) && now.Before(c.DateTime.Add(c.Duration))
	}
	if c.StartTime == nil {
		return false
	}
	for _, dayOffset := range []int{0, -1} {
		day := now.AddDate(0, 0, dayOffset)
		if !c.Repeating.matchesDay(day) {
			continue
		}
		start := c.StartTime.on(day)
		if !now.Before(start) && now.Before(start.Add(c.Duration)) {
			return true
		}
	}
	return false
}
