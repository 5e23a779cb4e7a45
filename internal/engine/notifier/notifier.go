// Package notifier informs interested parties (log, Slack) of rule changes
// in the engine.
package notifier

import (
	"github.com/clambin/homehub/internal/rules"
)

// Event is the kind of change being notified.
type Event int

const (
	Added Event = iota
	Removed
	ConfigurationChanged
	ActiveChanged
)

type Notifier interface {
	Notify(event Event, rule rules.Rule)
}

type Notifiers []Notifier

func (n Notifiers) Notify(event Event, rule rules.Rule) {
	for _, l := range n {
		l.Notify(event, rule)
	}
}

func buildMessage(event Event, rule rules.Rule) string {
	switch event {
	case Added:
		return "rule added"
	case Removed:
		return "rule removed"
	case ConfigurationChanged:
		return "rule configuration changed"
	case ActiveChanged:
		if rule.Active() {
			return "rule active"
		}
		return "rule inactive"
	}
	return ""
}
