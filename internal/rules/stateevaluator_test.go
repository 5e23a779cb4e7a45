package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clambin/homehub/internal/device"
)

type fakeStateProvider struct {
	states          map[device.DeviceID]map[device.StateTypeID]any
	interfaceStates map[string][]any
}

func (f fakeStateProvider) StateValue(deviceID device.DeviceID, stateTypeID device.StateTypeID) (any, bool) {
	v, ok := f.states[deviceID][stateTypeID]
	return v, ok
}

func (f fakeStateProvider) InterfaceStateValues(iface string, state string) []any {
	return f.interfaceStates[iface+"/"+state]
}

func TestStateEvaluator_Evaluate(t *testing.T) {
	provider := fakeStateProvider{
		states: map[device.DeviceID]map[device.StateTypeID]any{
			"thermostat": {"temperature": 21.5},
			"sensor":     {"presence": true},
		},
		interfaceStates: map[string][]any{
			"light/power": {true, true},
		},
	}

	tempAbove20 := StateDescriptor{DeviceID: "thermostat", StateTypeID: "temperature", Value: 20.0, Operator: OperatorGreater}
	present := StateDescriptor{DeviceID: "sensor", StateTypeID: "presence", Value: true, Operator: OperatorEquals}
	absent := StateDescriptor{DeviceID: "sensor", StateTypeID: "presence", Value: false, Operator: OperatorEquals}

	tests := []struct {
		name      string
		evaluator StateEvaluator
		want      bool
	}{
		{"empty is satisfied", StateEvaluator{}, true},
		{"single descriptor true", StateEvaluator{StateDescriptor: tempAbove20}, true},
		{"single descriptor false", StateEvaluator{StateDescriptor: absent}, false},
		{"unknown state", StateEvaluator{StateDescriptor: StateDescriptor{DeviceID: "missing", StateTypeID: "temperature", Value: 20.0, Operator: OperatorGreater}}, false},
		{"and all true", StateEvaluator{
			Operator:        StateOperatorAnd,
			ChildEvaluators: []StateEvaluator{{StateDescriptor: tempAbove20}, {StateDescriptor: present}},
		}, true},
		{"and one false", StateEvaluator{
			Operator:        StateOperatorAnd,
			ChildEvaluators: []StateEvaluator{{StateDescriptor: tempAbove20}, {StateDescriptor: absent}},
		}, false},
		{"or one true", StateEvaluator{
			Operator:        StateOperatorOr,
			ChildEvaluators: []StateEvaluator{{StateDescriptor: absent}, {StateDescriptor: present}},
		}, true},
		{"or all false", StateEvaluator{
			Operator:        StateOperatorOr,
			ChildEvaluators: []StateEvaluator{{StateDescriptor: absent}},
		}, false},
		{"nested", StateEvaluator{
			Operator: StateOperatorAnd,
			ChildEvaluators: []StateEvaluator{
				{StateDescriptor: tempAbove20},
				{Operator: StateOperatorOr, ChildEvaluators: []StateEvaluator{{StateDescriptor: absent}, {StateDescriptor: present}}},
			},
		}, true},
		{"interface all satisfy", StateEvaluator{
			StateDescriptor: StateDescriptor{Interface: "light", InterfaceState: "power", Value: true, Operator: OperatorEquals},
		}, true},
		{"interface not all satisfy", StateEvaluator{
			StateDescriptor: StateDescriptor{Interface: "light", InterfaceState: "power", Value: false, Operator: OperatorEquals},
		}, false},
		{"interface no devices is vacuously true", StateEvaluator{
			StateDescriptor: StateDescriptor{Interface: "heating", InterfaceState: "power", Value: true, Operator: OperatorEquals},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.evaluator.Evaluate(provider))
		})
	}
}

func TestStateEvaluator_IsValid(t *testing.T) {
	valid := StateDescriptor{DeviceID: "d", StateTypeID: "s", Value: 1, Operator: OperatorEquals}

	tests := []struct {
		name      string
		evaluator StateEvaluator
		want      bool
	}{
		{"empty", StateEvaluator{}, true},
		{"valid leaf", StateEvaluator{StateDescriptor: valid}, true},
		{"descriptor without operator", StateEvaluator{StateDescriptor: StateDescriptor{DeviceID: "d", StateTypeID: "s", Value: 1}}, false},
		{"descriptor without value", StateEvaluator{StateDescriptor: StateDescriptor{DeviceID: "d", StateTypeID: "s", Operator: OperatorEquals}}, false},
		{"both device and interface bound", StateEvaluator{StateDescriptor: StateDescriptor{DeviceID: "d", StateTypeID: "s", Interface: "i", InterfaceState: "s", Value: 1, Operator: OperatorEquals}}, false},
		{"leaf with children", StateEvaluator{StateDescriptor: valid, ChildEvaluators: []StateEvaluator{{StateDescriptor: valid}}}, false},
		{"valid children", StateEvaluator{Operator: StateOperatorOr, ChildEvaluators: []StateEvaluator{{StateDescriptor: valid}, {StateDescriptor: valid}}}, true},
		{"empty child", StateEvaluator{Operator: StateOperatorAnd, ChildEvaluators: []StateEvaluator{{}}}, false},
		{"invalid child", StateEvaluator{Operator: StateOperatorAnd, ChildEvaluators: []StateEvaluator{{StateDescriptor: StateDescriptor{DeviceID: "d"}}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.evaluator.IsValid())
		})
	}
}

func TestStateEvaluator_RemoveDevice(t *testing.T) {
	evaluator := StateEvaluator{
		Operator: StateOperatorAnd,
		ChildEvaluators: []StateEvaluator{
			{StateDescriptor: StateDescriptor{DeviceID: "a", StateTypeID: "s", Value: 1, Operator: OperatorEquals}},
			{StateDescriptor: StateDescriptor{DeviceID: "b", StateTypeID: "s", Value: 1, Operator: OperatorEquals}},
		},
	}

	assert.True(t, evaluator.ContainsDevice("a"))
	evaluator.RemoveDevice("a")
	assert.False(t, evaluator.ContainsDevice("a"))
	assert.True(t, evaluator.ContainsDevice("b"))
	assert.Equal(t, []device.DeviceID{"b"}, evaluator.ContainedDevices())

	evaluator.RemoveDevice("b")
	assert.True(t, evaluator.IsEmpty())
	assert.Nil(t, evaluator.ChildEvaluators)
}

func TestStateEvaluator_ContainsStateType(t *testing.T) {
	evaluator := StateEvaluator{
		Operator: StateOperatorOr,
		ChildEvaluators: []StateEvaluator{
			{StateDescriptor: StateDescriptor{DeviceID: "a", StateTypeID: "temperature", Value: 20.0, Operator: OperatorGreater}},
		},
	}
	assert.True(t, evaluator.ContainsStateType("temperature"))
	assert.False(t, evaluator.ContainsStateType("humidity"))
}
