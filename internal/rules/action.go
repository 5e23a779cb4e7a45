package rules

import (
	"fmt"

	"github.com/clambin/homehub/internal/device"
)

// RuleActionParam is one parameter of a RuleAction: either a fixed value, or
// a reference to a parameter of the event that triggered the rule, whose
// value is substituted at execution time.
type RuleActionParam struct {
	ParamTypeID      device.ParamTypeID `json:"paramTypeId"`
	Value            any                `json:"value,omitempty"`
	EventTypeID      device.EventTypeID `json:"eventTypeId,omitempty"`
	EventParamTypeID device.ParamTypeID `json:"eventParamTypeId,omitempty"`
}

// IsEventBased reports whether the param takes its value from the triggering
// event.
func (p RuleActionParam) IsEventBased() bool {
	return !p.EventTypeID.IsNil() || !p.EventParamTypeID.IsNil()
}

// IsValid requires the param to be exclusively a fixed value or exclusively
// an event reference.
func (p RuleActionParam) IsValid() bool {
	if p.ParamTypeID.IsNil() {
		return false
	}
	if p.Value != nil {
		return !p.IsEventBased()
	}
	return !p.EventTypeID.IsNil() && !p.EventParamTypeID.IsNil()
}

// RuleAction is an action template: the action type to execute on a device,
// with parameters that are either fixed or bound to the triggering event.
type RuleAction struct {
	ActionTypeID device.ActionTypeID `json:"actionTypeId"`
	DeviceID     device.DeviceID     `json:"deviceId"`
	Params       []RuleActionParam   `json:"params,omitempty"`
}

// IsEventBased reports whether any param references the triggering event.
func (a RuleAction) IsEventBased() bool {
	for _, p := range a.Params {
		if p.IsEventBased() {
			return true
		}
	}
	return false
}

// Resolve produces an executable action, substituting event-bound params from
// the triggering event. event may be nil for actions that are not event
// based.
func (a RuleAction) Resolve(event *device.Event) (device.Action, error) {
	resolved := device.Action{
		ActionTypeID: a.ActionTypeID,
		DeviceID:     a.DeviceID,
		Params:       make([]device.Param, 0, len(a.Params)),
	}
	for _, p := range a.Params {
		value := p.Value
		if p.IsEventBased() {
			if event == nil {
				return device.Action{}, fmt.Errorf("%w: param %q", ErrContainsEventBasedAction, p.ParamTypeID)
			}
			var ok bool
			if value, ok = event.Param(p.EventParamTypeID); !ok {
				return device.Action{}, fmt.Errorf("%w: event has no param %q", ErrInvalidRuleActionParameter, p.EventParamTypeID)
			}
		}
		resolved.Params = append(resolved.Params, device.Param{ParamTypeID: p.ParamTypeID, Value: value})
	}
	return resolved, nil
}
