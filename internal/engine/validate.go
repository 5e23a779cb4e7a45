package engine

import (
	"errors"
	"fmt"

	"github.com/clambin/homehub/internal/device"
	"github.com/clambin/homehub/internal/rules"
)

// validateRule checks a rule against the device registry: every referenced
// device, event type, state type and action type must exist, parameters must
// verify against their types, and event-bound action parameters must resolve
// to a declared event descriptor with a matching parameter type.
func (e *Engine) validateRule(rule rules.Rule) error {
	if !rule.IsConsistent() {
		return fmt.Errorf("%w: inconsistent trigger/action combination", rules.ErrInvalidRuleFormat)
	}
	if err := e.validateEventDescriptors(rule.EventDescriptors); err != nil {
		return err
	}
	if err := e.validateStateEvaluator(rule.StateEvaluator); err != nil {
		return err
	}
	if err := validateTimeDescriptor(rule.TimeDescriptor); err != nil {
		return err
	}
	if err := e.validateActions(rule, rule.Actions, true); err != nil {
		return err
	}
	return e.validateActions(rule, rule.ExitActions, false)
}

func (e *Engine) validateEventDescriptors(descriptors []rules.EventDescriptor) error {
	for _, descriptor := range descriptors {
		if !descriptor.IsValid() {
			return fmt.Errorf("%w: malformed event descriptor", rules.ErrInvalidParameter)
		}
		switch descriptor.Type() {
		case rules.DescriptorTypeDevice:
			d, ok := e.registry.FindDevice(descriptor.DeviceID)
			if !ok {
				return fmt.Errorf("%w: %q", rules.ErrDeviceNotFound, descriptor.DeviceID)
			}
			class, _ := e.registry.FindDeviceClass(d.ClassID)
			if _, ok = class.EventType(descriptor.EventTypeID); !ok {
				return fmt.Errorf("%w: %q", rules.ErrEventTypeNotFound, descriptor.EventTypeID)
			}
		case rules.DescriptorTypeInterface:
			if !e.interfaceEventExists(descriptor.Interface, descriptor.InterfaceEvent) {
				return fmt.Errorf("%w: interface %q has no event %q",
					rules.ErrEventTypeNotFound, descriptor.Interface, descriptor.InterfaceEvent)
			}
		}
	}
	return nil
}

// interfaceEventExists reports whether any registered device class implements
// the interface and declares an event with the given name.
func (e *Engine) interfaceEventExists(iface, eventName string) bool {
	for _, d := range e.registry.Devices() {
		class, ok := e.registry.FindDeviceClass(d.ClassID)
		if !ok || !class.Implements(iface) {
			continue
		}
		for _, et := range class.EventTypes {
			if et.Name == eventName {
				return true
			}
		}
	}
	return false
}

func (e *Engine) validateStateEvaluator(evaluator rules.StateEvaluator) error {
	if !evaluator.IsValid() {
		return rules.ErrInvalidStateEvaluatorValue
	}
	return e.validateStateDescriptors(evaluator)
}

func (e *Engine) validateStateDescriptors(evaluator rules.StateEvaluator) error {
	if d := evaluator.StateDescriptor; d.Type() == rules.DescriptorTypeDevice {
		dev, ok := e.registry.FindDevice(d.DeviceID)
		if !ok {
			return fmt.Errorf("%w: %q", rules.ErrDeviceNotFound, d.DeviceID)
		}
		class, _ := e.registry.FindDeviceClass(dev.ClassID)
		if _, ok = class.StateType(d.StateTypeID); !ok {
			return fmt.Errorf("%w: %q", rules.ErrStateTypeNotFound, d.StateTypeID)
		}
	}
	for _, child := range evaluator.ChildEvaluators {
		if err := e.validateStateDescriptors(child); err != nil {
			return err
		}
	}
	return nil
}

func validateTimeDescriptor(td rules.TimeDescriptor) error {
	if !td.IsEmpty() && !td.IsValid() {
		return rules.ErrInvalidTimeDescriptor
	}
	for _, item := range td.CalendarItems {
		if !item.Repeating.IsValid() {
			return fmt.Errorf("%w: calendar item", rules.ErrInvalidRepeatingOption)
		}
		if !item.IsValid() {
			return rules.ErrInvalidCalendarItem
		}
	}
	for _, item := range td.TimeEventItems {
		if !item.Repeating.IsValid() {
			return fmt.Errorf("%w: time event item", rules.ErrInvalidRepeatingOption)
		}
		if !item.IsValid() {
			return rules.ErrInvalidTimeEventItem
		}
	}
	return nil
}

func (e *Engine) validateActions(rule rules.Rule, actions []rules.RuleAction, eventBasedAllowed bool) error {
	for _, action := range actions {
		d, ok := e.registry.FindDevice(action.DeviceID)
		if !ok {
			return fmt.Errorf("%w: %q", rules.ErrDeviceNotFound, action.DeviceID)
		}
		class, _ := e.registry.FindDeviceClass(d.ClassID)
		actionType, ok := class.ActionType(action.ActionTypeID)
		if !ok {
			return fmt.Errorf("%w: %q", rules.ErrActionTypeNotFound, action.ActionTypeID)
		}

		var fixed []device.Param
		for _, param := range action.Params {
			if !param.IsValid() {
				return fmt.Errorf("%w: param %q", rules.ErrInvalidRuleActionParameter, param.ParamTypeID)
			}
			if param.IsEventBased() {
				if !eventBasedAllowed {
					return fmt.Errorf("%w: exit actions cannot use event parameters", rules.ErrInvalidRuleActionParameter)
				}
				if err := e.validateEventParam(rule, actionType, param); err != nil {
					return err
				}
				continue
			}
			fixed = append(fixed, device.Param{ParamTypeID: param.ParamTypeID, Value: param.Value})
		}

		if len(fixed) == len(action.Params) {
			if err := e.registry.VerifyParams(actionType.ParamTypes, fixed); err != nil {
				return mapParamError(err)
			}
		}
	}
	return nil
}

// validateEventParam checks that an event-bound action parameter references an
// event declared by one of the rule's own event descriptors, and that the
// referenced event parameter's type matches the action parameter's type.
func (e *Engine) validateEventParam(rule rules.Rule, actionType device.ActionType, param rules.RuleActionParam) error {
	if len(rule.EventDescriptors) == 0 {
		return fmt.Errorf("%w: event parameter without event descriptors", rules.ErrInvalidRuleActionParameter)
	}
	var descriptor *rules.EventDescriptor
	for i := range rule.EventDescriptors {
		if rule.EventDescriptors[i].EventTypeID == param.EventTypeID {
			descriptor = &rule.EventDescriptors[i]
			break
		}
	}
	if descriptor == nil {
		return fmt.Errorf("%w: event type %q not among the rule's event descriptors",
			rules.ErrInvalidRuleActionParameter, param.EventTypeID)
	}

	eventParamType, err := e.eventParamType(*descriptor, param.EventParamTypeID)
	if err != nil {
		return err
	}
	actionParamType, ok := actionType.ParamType(param.ParamTypeID)
	if !ok {
		return fmt.Errorf("%w: unknown action parameter %q", rules.ErrInvalidRuleActionParameter, param.ParamTypeID)
	}
	if actionParamType.Type != eventParamType.Type {
		return fmt.Errorf("%w: event parameter %q is %s, action parameter %q is %s",
			rules.ErrTypesNotMatching, param.EventParamTypeID, eventParamType.Type, param.ParamTypeID, actionParamType.Type)
	}
	return nil
}

func (e *Engine) eventParamType(descriptor rules.EventDescriptor, id device.ParamTypeID) (device.ParamType, error) {
	if descriptor.Type() != rules.DescriptorTypeDevice {
		return device.ParamType{}, fmt.Errorf("%w: event parameters require a device-bound event descriptor",
			rules.ErrInvalidRuleActionParameter)
	}
	d, ok := e.registry.FindDevice(descriptor.DeviceID)
	if !ok {
		return device.ParamType{}, fmt.Errorf("%w: %q", rules.ErrDeviceNotFound, descriptor.DeviceID)
	}
	class, _ := e.registry.FindDeviceClass(d.ClassID)
	eventType, ok := class.EventType(descriptor.EventTypeID)
	if !ok {
		return device.ParamType{}, fmt.Errorf("%w: %q", rules.ErrEventTypeNotFound, descriptor.EventTypeID)
	}
	pt, ok := eventType.ParamType(id)
	if !ok {
		return device.ParamType{}, fmt.Errorf("%w: event has no parameter %q", rules.ErrInvalidRuleActionParameter, id)
	}
	return pt, nil
}

func mapParamError(err error) error {
	switch {
	case errors.Is(err, device.ErrMissingParameter):
		return fmt.Errorf("%w: %v", rules.ErrMissingParameter, err)
	case errors.Is(err, device.ErrInvalidParameter):
		return fmt.Errorf("%w: %v", rules.ErrInvalidParameter, err)
	default:
		return err
	}
}
