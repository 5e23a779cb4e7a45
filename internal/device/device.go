// Package device holds the device model the rule engine works against: device
// classes declaring event, state and action types, configured devices, and the
// events and actions exchanged with them. The Registry keeps the configured
// devices and their current state in memory; discovery and hardware I/O live
// behind it and are not part of this package.
package device

import (
	"github.com/google/uuid"
)

type (
	DeviceID      string
	DeviceClassID string
	EventTypeID   string
	StateTypeID   string
	ActionTypeID  string
	ParamTypeID   string
)

func NewDeviceID() DeviceID       { return DeviceID(uuid.NewString()) }
func NewEventTypeID() EventTypeID { return EventTypeID(uuid.NewString()) }

func (id DeviceID) IsNil() bool      { return id == "" }
func (id DeviceClassID) IsNil() bool { return id == "" }
func (id EventTypeID) IsNil() bool   { return id == "" }
func (id StateTypeID) IsNil() bool   { return id == "" }
func (id ActionTypeID) IsNil() bool  { return id == "" }
func (id ParamTypeID) IsNil() bool   { return id == "" }

// ValueType is the declared type of a parameter or state value.
type ValueType string

const (
	TypeBool   ValueType = "bool"
	TypeInt    ValueType = "int"
	TypeFloat  ValueType = "float"
	TypeString ValueType = "string"
)

// Matches reports whether v is of type t. Numeric values survive a JSON round
// trip as float64, so an integral float64 satisfies TypeInt.
func (t ValueType) Matches(v any) bool {
	switch t {
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeInt:
		switch n := v.(type) {
		case int, int64:
			return true
		case float64:
			return n == float64(int64(n))
		}
		return false
	case TypeFloat:
		switch v.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case TypeString:
		_, ok := v.(string)
		return ok
	}
	return false
}

// ParamType declares a parameter of an event or action type, including its
// value type and constraints.
type ParamType struct {
	ID       ParamTypeID `yaml:"id" json:"id"`
	Name     string      `yaml:"name" json:"name"`
	Type     ValueType   `yaml:"type" json:"type"`
	Required bool        `yaml:"required,omitempty" json:"required,omitempty"`
	Min      *float64    `yaml:"min,omitempty" json:"min,omitempty"`
	Max      *float64    `yaml:"max,omitempty" json:"max,omitempty"`
}

// Param is a concrete parameter value, carried by events and resolved actions.
type Param struct {
	ParamTypeID ParamTypeID `yaml:"paramTypeId" json:"paramTypeId"`
	Value       any         `yaml:"value" json:"value"`
}

// EventType is an event a device class can emit.
type EventType struct {
	ID         EventTypeID `yaml:"id" json:"id"`
	Name       string      `yaml:"name" json:"name"`
	ParamTypes []ParamType `yaml:"params,omitempty" json:"params,omitempty"`
}

func (t EventType) ParamType(id ParamTypeID) (ParamType, bool) {
	for _, pt := range t.ParamTypes {
		if pt.ID == id {
			return pt, true
		}
	}
	return ParamType{}, false
}

// StateType is a state a device class exposes. A state change is mirrored as
// an event carrying the same id, so rules can react to it.
type StateType struct {
	ID   StateTypeID `yaml:"id" json:"id"`
	Name string      `yaml:"name" json:"name"`
	Type ValueType   `yaml:"type" json:"type"`
}

// ActionType is an action a device class supports.
type ActionType struct {
	ID         ActionTypeID `yaml:"id" json:"id"`
	Name       string       `yaml:"name" json:"name"`
	ParamTypes []ParamType  `yaml:"params,omitempty" json:"params,omitempty"`
}

func (t ActionType) ParamType(id ParamTypeID) (ParamType, bool) {
	for _, pt := range t.ParamTypes {
		if pt.ID == id {
			return pt, true
		}
	}
	return ParamType{}, false
}

// DeviceClass describes a kind of device: the interfaces it implements and the
// event, state and action types it declares.
type DeviceClass struct {
	ID          DeviceClassID `yaml:"id" json:"id"`
	Name        string        `yaml:"name" json:"name"`
	Interfaces  []string      `yaml:"interfaces,omitempty" json:"interfaces,omitempty"`
	EventTypes  []EventType   `yaml:"events,omitempty" json:"events,omitempty"`
	StateTypes  []StateType   `yaml:"states,omitempty" json:"states,omitempty"`
	ActionTypes []ActionType  `yaml:"actions,omitempty" json:"actions,omitempty"`
}

func (c DeviceClass) EventType(id EventTypeID) (EventType, bool) {
	for _, et := range c.EventTypes {
		if et.ID == id {
			return et, true
		}
	}
	return EventType{}, false
}

func (c DeviceClass) StateType(id StateTypeID) (StateType, bool) {
	for _, st := range c.StateTypes {
		if st.ID == id {
			return st, true
		}
	}
	return StateType{}, false
}

func (c DeviceClass) StateTypeByName(name string) (StateType, bool) {
	for _, st := range c.StateTypes {
		if st.Name == name {
			return st, true
		}
	}
	return StateType{}, false
}

func (c DeviceClass) ActionType(id ActionTypeID) (ActionType, bool) {
	for _, at := range c.ActionTypes {
		if at.ID == id {
			return at, true
		}
	}
	return ActionType{}, false
}

func (c DeviceClass) HasActionType(id ActionTypeID) bool {
	_, ok := c.ActionType(id)
	return ok
}

func (c DeviceClass) Implements(iface string) bool {
	for _, i := range c.Interfaces {
		if i == iface {
			return true
		}
	}
	return false
}

// Device is a configured device.
type Device struct {
	ID      DeviceID      `yaml:"id" json:"id"`
	ClassID DeviceClassID `yaml:"class" json:"class"`
	Name    string        `yaml:"name" json:"name"`
}

// Event is emitted by a device: a state change or a stateless occurrence
// (e.g. a button press).
type Event struct {
	EventTypeID EventTypeID
	DeviceID    DeviceID
	Params      []Param
}

// Param returns the value of the event parameter with the given id.
func (e Event) Param(id ParamTypeID) (any, bool) {
	for _, p := range e.Params {
		if p.ParamTypeID == id {
			return p.Value, true
		}
	}
	return nil, false
}

// Action is a fully resolved action, ready to be handed to an executor.
type Action struct {
	ActionTypeID ActionTypeID
	DeviceID     DeviceID
	Params       []Param
}
