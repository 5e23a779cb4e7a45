package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clambin/homehub/internal/device"
	"github.com/clambin/homehub/internal/rules"
)

type capturingExecutor struct {
	ch chan device.Action
}

func (c capturingExecutor) Execute(actions []device.Action) {
	for _, action := range actions {
		c.ch <- action
	}
}

func TestMonitor(t *testing.T) {
	registry := testRegistry(t)
	executor := capturingExecutor{ch: make(chan device.Action, 10)}
	e := New(registry, nil, executor, nil, nil, discardLogger)

	// event-triggered: dialing the thermostat target
	require.NoError(t, e.AddRule(rules.Rule{
		ID:               "dial",
		EventDescriptors: []rules.EventDescriptor{{EventTypeID: "dial-turned", DeviceID: "switch"}},
		Actions: []rules.RuleAction{{
			ActionTypeID: "set-target",
			DeviceID:     "thermostat",
			Params: []rules.RuleActionParam{
				{ParamTypeID: "target", EventTypeID: "dial-turned", EventParamTypeID: "value"},
			},
		}},
		Enabled: true,
	}))

	// level-triggered: cooling with exit actions
	require.NoError(t, e.AddRule(rules.Rule{
		ID: "cooling",
		StateEvaluator: rules.StateEvaluator{
			StateDescriptor: rules.StateDescriptor{
				DeviceID: "thermostat", StateTypeID: "temperature", Value: 20.0, Operator: rules.OperatorGreaterOrEqual,
			},
		},
		Actions:     []rules.RuleAction{powerAction(true)},
		ExitActions: []rules.RuleAction{powerAction(false)},
		Enabled:     true,
	}))

	monitor := Monitor{
		Engine:   e,
		Events:   registry,
		Interval: time.Hour, // ticks are not part of this test
		Logger:   discardLogger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- monitor.Run(ctx) }()

	// give the monitor time to subscribe
	require.Eventually(t, func() bool { return registry.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	// the dial event resolves the event param into the action
	require.NoError(t, registry.SetState("switch", "power", false)) // unrelated state change, no action
	registry.Publish(device.Event{
		EventTypeID: "dial-turned",
		DeviceID:    "switch",
		Params:      []device.Param{{ParamTypeID: "value", Value: 22.5}},
	})
	action := <-executor.ch
	assert.Equal(t, device.ActionTypeID("set-target"), action.ActionTypeID)
	value, _ := device.Event{Params: action.Params}.Param("target")
	assert.Equal(t, 22.5, value)

	// warming up activates the cooling rule
	require.NoError(t, registry.SetState("thermostat", "temperature", 25.0))
	action = <-executor.ch
	assert.Equal(t, device.ActionTypeID("set-power"), action.ActionTypeID)
	value, _ = device.Event{Params: action.Params}.Param("power")
	assert.Equal(t, true, value)

	// cooling down runs the exit actions
	require.NoError(t, registry.SetState("thermostat", "temperature", 15.0))
	action = <-executor.ch
	value, _ = device.Event{Params: action.Params}.Param("power")
	assert.Equal(t, false, value)

	cancel()
	assert.NoError(t, <-errCh)
}

func TestMonitor_Ticks(t *testing.T) {
	registry := testRegistry(t)
	executor := capturingExecutor{ch: make(chan device.Action, 10)}
	e := New(registry, nil, executor, nil, nil, discardLogger)

	require.NoError(t, e.AddRule(rules.Rule{
		ID: "morning",
		TimeDescriptor: rules.TimeDescriptor{TimeEventItems: []rules.TimeEventItem{
			{Time: rules.NewTimeOfDay(9, 0), Repeating: rules.RepeatingOption{Mode: rules.RepeatingModeDaily}},
		}},
		Actions: []rules.RuleAction{powerAction(true)},
		Enabled: true,
	}))
	require.NoError(t, e.AddRule(rules.Rule{
		ID: "daytime",
		TimeDescriptor: rules.TimeDescriptor{CalendarItems: []rules.CalendarItem{
			{StartTime: rules.NewTimeOfDay(9, 0), Duration: 8 * time.Hour, Repeating: rules.RepeatingOption{Mode: rules.RepeatingModeDaily}},
		}},
		Actions:     []rules.RuleAction{powerAction(true)},
		ExitActions: []rules.RuleAction{powerAction(false)},
		Enabled:     true,
	}))

	monitor := Monitor{Engine: e, Events: registry, Interval: time.Hour, Logger: discardLogger}

	at := func(hour, minute, second int) time.Time {
		return time.Date(2025, time.September, 1, hour, minute, second, 0, time.UTC)
	}

	monitor.handleTick(at(8, 59, 59))
	assert.Empty(t, executor.ch)

	// 09:00 fires the time event and opens the calendar window
	monitor.handleTick(at(9, 0, 30))
	var types []device.ActionTypeID
	var values []any
	for range 2 {
		action := <-executor.ch
		types = append(types, action.ActionTypeID)
		value, _ := device.Event{Params: action.Params}.Param("power")
		values = append(values, value)
	}
	assert.Equal(t, []device.ActionTypeID{"set-power", "set-power"}, types)
	assert.Equal(t, []any{true, true}, values)

	monitor.handleTick(at(12, 0, 0))
	assert.Empty(t, executor.ch)

	// leaving the window runs the exit actions
	monitor.handleTick(at(17, 0, 1))
	action := <-executor.ch
	value, _ := device.Event{Params: action.Params}.Param("power")
	assert.Equal(t, false, value)
}
