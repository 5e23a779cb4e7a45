package rules

import (
	"github.com/clambin/homehub/internal/device"
)

// StateProvider supplies current device state values to a StateEvaluator.
type StateProvider interface {
	StateValue(device.DeviceID, device.StateTypeID) (any, bool)
	InterfaceStateValues(iface string, state string) []any
}

// StateDescriptor is a comparison against a single device state, either bound
// to one device and state type, or to an interface and interface state name.
type StateDescriptor struct {
	DeviceID       device.DeviceID    `json:"deviceId,omitempty"`
	StateTypeID    device.StateTypeID `json:"stateTypeId,omitempty"`
	Interface      string             `json:"interface,omitempty"`
	InterfaceState string             `json:"interfaceState,omitempty"`
	Value          any                `json:"value"`
	Operator       ValueOperator      `json:"operator"`
}

func (d StateDescriptor) Type() DescriptorType {
	if !d.DeviceID.IsNil() && !d.StateTypeID.IsNil() {
		return DescriptorTypeDevice
	}
	return DescriptorTypeInterface
}

func (d StateDescriptor) IsValid() bool {
	deviceBound := !d.DeviceID.IsNil() && !d.StateTypeID.IsNil()
	interfaceBound := d.Interface != "" && d.InterfaceState != ""
	return deviceBound != interfaceBound && d.Value != nil && d.Operator.IsValid()
}

func (d StateDescriptor) isEmpty() bool {
	return d.DeviceID.IsNil() && d.StateTypeID.IsNil() && d.Interface == "" && d.InterfaceState == ""
}

// evaluate compares the current state value(s) against the descriptor. An
// interface-bound descriptor holds if all implementing devices satisfy the
// comparison.
func (d StateDescriptor) evaluate(p StateProvider) bool {
	switch d.Type() {
	case DescriptorTypeDevice:
		value, ok := p.StateValue(d.DeviceID, d.StateTypeID)
		return ok && d.Operator.Compare(value, d.Value)
	default:
		for _, value := range p.InterfaceStateValues(d.Interface, d.InterfaceState) {
			if !d.Operator.Compare(value, d.Value) {
				return false
			}
		}
		return true
	}
}

// StateOperator combines the results of child evaluators.
type StateOperator string

const (
	StateOperatorAnd StateOperator = "and"
	StateOperatorOr  StateOperator = "or"
)

// StateEvaluator is a node in a boolean predicate tree over device states: a
// leaf holds a StateDescriptor, an interior node combines child evaluators
// with a StateOperator. The zero value is the empty evaluator, which is
// vacuously satisfied.
type StateEvaluator struct {
	StateDescriptor StateDescriptor  `json:"stateDescriptor,omitempty"`
	ChildEvaluators []StateEvaluator `json:"childEvaluators,omitempty"`
	Operator        StateOperator    `json:"operator,omitempty"`
}

// IsEmpty reports whether the evaluator has neither a descriptor nor children.
func (s StateEvaluator) IsEmpty() bool {
	return s.StateDescriptor.isEmpty() && len(s.ChildEvaluators) == 0
}

// IsValid reports whether the evaluator is well-formed: a leaf needs a valid
// descriptor, an interior node needs valid children. The empty evaluator is
// valid ("no state conditions").
func (s StateEvaluator) IsValid() bool {
	if s.IsEmpty() {
		return true
	}
	if !s.StateDescriptor.isEmpty() {
		if !s.StateDescriptor.IsValid() {
			return false
		}
		if len(s.ChildEvaluators) > 0 {
			return false
		}
		return true
	}
	for _, child := range s.ChildEvaluators {
		if child.IsEmpty() || !child.IsValid() {
			return false
		}
	}
	return true
}

// Evaluate resolves the predicate tree against the current device states.
func (s StateEvaluator) Evaluate(p StateProvider) bool {
	if !s.StateDescriptor.isEmpty() {
		return s.StateDescriptor.evaluate(p)
	}
	if len(s.ChildEvaluators) == 0 {
		return true
	}
	if s.Operator == StateOperatorOr {
		for _, child := range s.ChildEvaluators {
			if child.Evaluate(p) {
				return true
			}
		}
		return false
	}
	for _, child := range s.ChildEvaluators {
		if !child.Evaluate(p) {
			return false
		}
	}
	return true
}

// ContainsDevice reports whether the device appears anywhere in the tree.
func (s StateEvaluator) ContainsDevice(id device.DeviceID) bool {
	if s.StateDescriptor.DeviceID == id {
		return true
	}
	for _, child := range s.ChildEvaluators {
		if child.ContainsDevice(id) {
			return true
		}
	}
	return false
}

// ContainsStateType reports whether any leaf references the given state type.
func (s StateEvaluator) ContainsStateType(id device.StateTypeID) bool {
	if s.StateDescriptor.StateTypeID == id {
		return true
	}
	for _, child := range s.ChildEvaluators {
		if child.ContainsStateType(id) {
			return true
		}
	}
	return false
}

// ContainedDevices returns the ids of all devices referenced in the tree.
func (s StateEvaluator) ContainedDevices() []device.DeviceID {
	var ids []device.DeviceID
	if !s.StateDescriptor.DeviceID.IsNil() {
		ids = append(ids, s.StateDescriptor.DeviceID)
	}
	for _, child := range s.ChildEvaluators {
		ids = append(ids, child.ContainedDevices()...)
	}
	return ids
}

// RemoveDevice strips all references to the device from the tree, pruning
// child evaluators that end up empty.
func (s *StateEvaluator) RemoveDevice(id device.DeviceID) {
	if s.StateDescriptor.DeviceID == id {
		s.StateDescriptor = StateDescriptor{}
	}
	children := s.ChildEvaluators[:0]
	for i := range s.ChildEvaluators {
		s.ChildEvaluators[i].RemoveDevice(id)
		if !s.ChildEvaluators[i].IsEmpty() {
			children = append(children, s.ChildEvaluators[i])
		}
	}
	if len(children) == 0 {
		children = nil
	}
	s.ChildEvaluators = children
}
