package rules

import "time"

// TimeEventItem describes a point in time at which a rule triggers: either
// one absolute date/time, or a recurring wall-clock time according to its
// RepeatingOption.
type TimeEventItem struct {
	DateTime  time.Time       `json:"dateTime,omitempty"`
	Time      *TimeOfDay      `json:"time,omitempty"`
	Repeating RepeatingOption `json:"repeating,omitempty"`
}

// IsValid requires exactly one of an absolute date/time or a recurring
// wall-clock time. An anchored item cannot also repeat.
func (t TimeEventItem) IsValid() bool {
	anchored := !t.DateTime.IsZero()
	recurring := t.Time != nil
	if anchored == recurring {
		return false
	}
	if anchored && !t.Repeating.IsEmpty() {
		return false
	}
	return true
}

// TriggersBetween reports whether an instance of the trigger point falls in
// the half-open interval (prev, now]. The engine passes the previous
// evaluation time as prev on every tick, so a firing instant is detected
// exactly once regardless of tick granularity.
func (t TimeEventItem) TriggersBetween(prev, now time.Time) bool {
	if now.Before(prev) {
		return false
	}
	if !t.DateTime.IsZero() {
		return t.DateTime.After(prev) && !t.DateTime.After(now)
	}
	if t.Time == nil {
		return false
	}
	// walk the days covered by (prev, now] and test each day's instance
	for day := prev; !day.After(now.AddDate(0, 0, 1)); day = day.AddDate(0, 0, 1) {
		if !t.Repeating.matchesDay(day) {
			continue
		}
		instant := t.Time.on(day)
		if instant.After(prev) && !instant.After(now) {
			return true
		}
	}
	return false
}
