package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/clambin/homehub/internal/device"
	"github.com/clambin/homehub/internal/rules"
)

// EventSource is the device event feed the monitor subscribes to.
type EventSource interface {
	Subscribe() chan device.Event
	Unsubscribe(chan device.Event)
}

// Monitor drives the engine: it subscribes to device events and feeds them to
// EvaluateEvent, ticks the time-based evaluation, and executes the actions of
// the rules the engine reports.
type Monitor struct {
	Engine   *Engine
	Events   EventSource
	Interval time.Duration
	Logger   *slog.Logger
}

// Run processes device events and time ticks until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ch := m.Events.Subscribe()
	defer m.Events.Unsubscribe(ch)

	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	m.Logger.Debug("monitor started", slog.Duration("interval", m.Interval))
	defer m.Logger.Debug("monitor stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-ch:
			m.handleEvent(ev)
		case now := <-ticker.C:
			m.handleTick(now)
		}
	}
}

func (m *Monitor) handleEvent(ev device.Event) {
	for _, rule := range m.Engine.EvaluateEvent(ev) {
		if len(rule.EventDescriptors) > 0 {
			// event-triggered: the event's parameters feed the actions
			m.check(rule.ID, m.Engine.executeTriggered(rule.ID, &ev))
			continue
		}
		m.runTransition(rule)
	}
}

func (m *Monitor) handleTick(now time.Time) {
	for _, rule := range m.Engine.EvaluateTime(now) {
		if len(rule.TimeDescriptor.TimeEventItems) > 0 {
			m.check(rule.ID, m.Engine.executeTriggered(rule.ID, nil))
			continue
		}
		m.runTransition(rule)
	}
}

// runTransition executes a level-triggered rule's actions when it went
// active, or its exit actions when it went inactive.
func (m *Monitor) runTransition(rule rules.Rule) {
	if rule.Active() {
		m.check(rule.ID, m.Engine.executeTriggered(rule.ID, nil))
		return
	}
	if len(rule.ExitActions) > 0 {
		m.check(rule.ID, m.Engine.executeExitTriggered(rule.ID))
	}
}

func (m *Monitor) check(id rules.RuleID, err error) {
	if err != nil {
		m.Logger.Error("rule execution failed", slog.String("rule", string(id)), slog.Any("err", err))
	}
}
