// Package rules holds the building blocks of automation rules: trigger
// descriptors, the state evaluator tree, time descriptors and action
// templates, aggregated into a Rule. The engine package owns the rule
// collection and its evaluation.
package rules

import (
	"github.com/google/uuid"

	"github.com/clambin/homehub/internal/device"
)

// RuleID uniquely identifies a rule.
type RuleID string

func NewRuleID() RuleID { return RuleID(uuid.NewString()) }

func (id RuleID) IsNil() bool { return id == "" }

// Rule maps triggers (event descriptors or a time descriptor) and state
// conditions to actions. Exit actions run when a level-triggered rule leaves
// the active state.
//
// The definition fields are exported and serialized; the runtime flags
// (active, statesActive, timeActive) are evaluation caches owned by the
// engine and are not persisted.
type Rule struct {
	ID               RuleID            `json:"id"`
	Name             string            `json:"name"`
	EventDescriptors []EventDescriptor `json:"eventDescriptors,omitempty"`
	StateEvaluator   StateEvaluator    `json:"stateEvaluator,omitempty"`
	TimeDescriptor   TimeDescriptor    `json:"timeDescriptor,omitempty"`
	Actions          []RuleAction      `json:"actions"`
	ExitActions      []RuleAction      `json:"exitActions,omitempty"`
	Enabled          bool              `json:"enabled"`
	Executable       bool              `json:"executable"`

	active       bool
	statesActive bool
	timeActive   bool
}

// IsValid reports whether the rule has an id.
func (r Rule) IsValid() bool {
	return !r.ID.IsNil()
}

// IsConsistent checks the structural invariants: a rule triggered by events
// or time events can never leave an active state, so it must not carry exit
// actions, and a rule without actions has no effect.
func (r Rule) IsConsistent() bool {
	if len(r.EventDescriptors) > 0 && len(r.ExitActions) > 0 {
		return false
	}
	if len(r.TimeDescriptor.TimeEventItems) > 0 && len(r.ExitActions) > 0 {
		return false
	}
	return len(r.Actions) > 0
}

// Active reports whether the rule's conditions currently hold. Only
// level-triggered (continuously evaluated) rules track this.
func (r Rule) Active() bool { return r.active }

// StatesActive returns the cached result of the state evaluator.
func (r Rule) StatesActive() bool { return r.statesActive }

// TimeActive returns the cached result of the calendar window evaluation. A
// rule without calendar items is always time active.
func (r Rule) TimeActive() bool {
	if len(r.TimeDescriptor.CalendarItems) == 0 {
		return true
	}
	return r.timeActive
}

func (r *Rule) SetActive(active bool)             { r.active = active }
func (r *Rule) SetStatesActive(statesActive bool) { r.statesActive = statesActive }
func (r *Rule) SetTimeActive(timeActive bool)     { r.timeActive = timeActive }

// ContainsDevice reports whether the device is referenced anywhere in the
// rule: event descriptors, state evaluator, actions or exit actions.
func (r Rule) ContainsDevice(id device.DeviceID) bool {
	for _, d := range r.EventDescriptors {
		if d.DeviceID == id {
			return true
		}
	}
	if r.StateEvaluator.ContainsDevice(id) {
		return true
	}
	for _, a := range r.Actions {
		if a.DeviceID == id {
			return true
		}
	}
	for _, a := range r.ExitActions {
		if a.DeviceID == id {
			return true
		}
	}
	return false
}
