package rules

import "time"

// RepeatingMode determines how a calendar or time event item recurs.
type RepeatingMode string

const (
	RepeatingModeNone    RepeatingMode = ""
	RepeatingModeDaily   RepeatingMode = "daily"
	RepeatingModeWeekly  RepeatingMode = "weekly"
	RepeatingModeMonthly RepeatingMode = "monthly"
)

// RepeatingOption restricts a recurring item to certain week days (weekly
// mode, ISO numbering: Monday=1 .. Sunday=7) or days of the month (monthly
// mode). An empty day list means every day of the week resp. month.
type RepeatingOption struct {
	Mode      RepeatingMode `json:"mode,omitempty"`
	WeekDays  []int         `json:"weekDays,omitempty"`
	MonthDays []int         `json:"monthDays,omitempty"`
}

// IsEmpty reports whether the option specifies no recurrence (one-shot).
func (r RepeatingOption) IsEmpty() bool {
	return r.Mode == RepeatingModeNone && len(r.WeekDays) == 0 && len(r.MonthDays) == 0
}

// IsValid checks that the day lists are consistent with the mode and that all
// values are in range. Week day and month day lists are mutually exclusive.
func (r RepeatingOption) IsValid() bool {
	switch r.Mode {
	case RepeatingModeNone, RepeatingModeDaily:
		return len(r.WeekDays) == 0 && len(r.MonthDays) == 0
	case RepeatingModeWeekly:
		if len(r.MonthDays) > 0 {
			return false
		}
		for _, day := range r.WeekDays {
			if day < 1 || day > 7 {
				return false
			}
		}
		return true
	case RepeatingModeMonthly:
		if len(r.WeekDays) > 0 {
			return false
		}
		for _, day := range r.MonthDays {
			if day < 1 || day > 31 {
				return false
			}
		}
		return true
	}
	return false
}

// matchesDay reports whether the recurrence includes the calendar day of t.
func (r RepeatingOption) matchesDay(t time.Time) bool {
	switch r.Mode {
	case RepeatingModeWeekly:
		if len(r.WeekDays) == 0 {
			return true
		}
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7 // time.Sunday is 0, ISO numbering puts it last
		}
		for _, day := range r.WeekDays {
			if day == weekday {
				return true
			}
		}
		return false
	case RepeatingModeMonthly:
		if len(r.MonthDays) == 0 {
			return true
		}
		for _, day := range r.MonthDays {
			if day == t.Day() {
				return true
			}
		}
		return false
	}
	// none and daily recur every day
	return true
}
