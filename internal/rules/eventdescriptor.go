package rules

import (
	"github.com/clambin/homehub/internal/device"
)

// ParamDescriptor is a condition on a single event parameter.
type ParamDescriptor struct {
	ParamTypeID device.ParamTypeID `json:"paramTypeId"`
	Value       any                `json:"value"`
	Operator    ValueOperator      `json:"operator"`
}

func (p ParamDescriptor) IsValid() bool {
	return !p.ParamTypeID.IsNil() && p.Value != nil && p.Operator.IsValid()
}

// Matches reports whether the observed parameter value satisfies the
// descriptor's comparison.
func (p ParamDescriptor) Matches(value any) bool {
	return p.Operator.Compare(value, p.Value)
}

// DescriptorType distinguishes device-bound from interface-bound descriptors.
type DescriptorType int

const (
	DescriptorTypeDevice DescriptorType = iota
	DescriptorTypeInterface
)

// EventDescriptor describes the events that trigger a rule. It is either
// bound to one device and event type, or to an interface and interface event
// name, in which case it matches the event on every device whose class
// implements the interface.
type EventDescriptor struct {
	EventTypeID      device.EventTypeID `json:"eventTypeId,omitempty"`
	DeviceID         device.DeviceID    `json:"deviceId,omitempty"`
	Interface        string             `json:"interface,omitempty"`
	InterfaceEvent   string             `json:"interfaceEvent,omitempty"`
	ParamDescriptors []ParamDescriptor  `json:"paramDescriptors,omitempty"`
}

func (d EventDescriptor) Type() DescriptorType {
	if !d.DeviceID.IsNil() && !d.EventTypeID.IsNil() {
		return DescriptorTypeDevice
	}
	return DescriptorTypeInterface
}

func (d EventDescriptor) IsValid() bool {
	deviceBound := !d.DeviceID.IsNil() && !d.EventTypeID.IsNil()
	interfaceBound := d.Interface != "" && d.InterfaceEvent != ""
	if deviceBound == interfaceBound {
		return false
	}
	for _, pd := range d.ParamDescriptors {
		if !pd.IsValid() {
			return false
		}
	}
	return true
}

// Matches reports whether the descriptor matches the given event. class must
// be the device class of the emitting device; it is only consulted for
// interface-bound descriptors.
func (d EventDescriptor) Matches(e device.Event, class device.DeviceClass) bool {
	switch d.Type() {
	case DescriptorTypeDevice:
		if d.EventTypeID != e.EventTypeID || d.DeviceID != e.DeviceID {
			return false
		}
	case DescriptorTypeInterface:
		if !class.Implements(d.Interface) {
			return false
		}
		et, ok := class.EventType(e.EventTypeID)
		if !ok || et.Name != d.InterfaceEvent {
			return false
		}
	}
	for _, pd := range d.ParamDescriptors {
		value, ok := e.Param(pd.ParamTypeID)
		if !ok || !pd.Matches(value) {
			return false
		}
	}
	return true
}
