package device

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/clambin/homehub/pkg/pubsub"
	"gopkg.in/yaml.v3"
)

// Registry keeps the configured devices, their classes and their current
// state values in memory, and publishes an Event for every state change.
type Registry struct {
	*pubsub.Publisher[Event]
	classes map[DeviceClassID]DeviceClass
	devices map[DeviceID]Device
	order   []DeviceID
	states  map[DeviceID]map[StateTypeID]any
	logger  *slog.Logger
	lock    sync.RWMutex
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		Publisher: pubsub.New[Event](logger),
		classes:   make(map[DeviceClassID]DeviceClass),
		devices:   make(map[DeviceID]Device),
		states:    make(map[DeviceID]map[StateTypeID]any),
		logger:    logger,
	}
}

// catalog is the on-disk format for LoadFile.
type catalog struct {
	Classes []DeviceClass  `yaml:"classes"`
	Devices []catalogEntry `yaml:"devices"`
}

type catalogEntry struct {
	Device `yaml:",inline"`
	States map[StateTypeID]any `yaml:"states,omitempty"`
}

// LoadFile seeds the registry from a YAML device catalog.
func (r *Registry) LoadFile(path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("devices: %w", err)
	}
	var c catalog
	if err = yaml.Unmarshal(body, &c); err != nil {
		return fmt.Errorf("devices: %w", err)
	}
	for _, class := range c.Classes {
		r.AddClass(class)
	}
	for _, entry := range c.Devices {
		if err = r.AddDevice(entry.Device); err != nil {
			return fmt.Errorf("devices: %w", err)
		}
		for stateTypeID, value := range entry.States {
			r.setState(entry.Device.ID, stateTypeID, value, false)
		}
	}
	r.logger.Info("device catalog loaded",
		slog.Int("classes", len(c.Classes)), slog.Int("devices", len(c.Devices)))
	return nil
}

func (r *Registry) AddClass(class DeviceClass) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.classes[class.ID] = class
}

func (r *Registry) AddDevice(d Device) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.classes[d.ClassID]; !ok {
		return fmt.Errorf("device %q: unknown class %q", d.Name, d.ClassID)
	}
	if _, ok := r.devices[d.ID]; !ok {
		r.order = append(r.order, d.ID)
	}
	r.devices[d.ID] = d
	return nil
}

func (r *Registry) FindDevice(id DeviceID) (Device, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	d, ok := r.devices[id]
	return d, ok
}

func (r *Registry) FindDeviceClass(id DeviceClassID) (DeviceClass, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	c, ok := r.classes[id]
	return c, ok
}

// Devices returns all configured devices in insertion order.
func (r *Registry) Devices() []Device {
	r.lock.RLock()
	defer r.lock.RUnlock()
	devices := make([]Device, 0, len(r.order))
	for _, id := range r.order {
		devices = append(devices, r.devices[id])
	}
	return devices
}

// StateValue returns the current value of the given device state.
func (r *Registry) StateValue(deviceID DeviceID, stateTypeID StateTypeID) (any, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	v, ok := r.states[deviceID][stateTypeID]
	return v, ok
}

// InterfaceStateValues returns the current values of the named state on all
// devices whose class implements the named interface.
func (r *Registry) InterfaceStateValues(iface string, state string) []any {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var values []any
	for _, id := range r.order {
		d := r.devices[id]
		class, ok := r.classes[d.ClassID]
		if !ok || !class.Implements(iface) {
			continue
		}
		st, ok := class.StateTypeByName(state)
		if !ok {
			continue
		}
		if v, ok := r.states[d.ID][st.ID]; ok {
			values = append(values, v)
		}
	}
	return values
}

// SetState updates a device state value and publishes the state change as an
// Event carrying the state type id as its event type id.
func (r *Registry) SetState(deviceID DeviceID, stateTypeID StateTypeID, value any) error {
	r.lock.RLock()
	d, ok := r.devices[deviceID]
	if !ok {
		r.lock.RUnlock()
		return fmt.Errorf("unknown device %q", deviceID)
	}
	class := r.classes[d.ClassID]
	st, ok := class.StateType(stateTypeID)
	r.lock.RUnlock()
	if !ok {
		return fmt.Errorf("device %q: unknown state %q", d.Name, stateTypeID)
	}
	if !st.Type.Matches(value) {
		return fmt.Errorf("state %q: value must be of type %s", st.Name, st.Type)
	}
	r.setState(deviceID, stateTypeID, value, true)
	return nil
}

func (r *Registry) setState(deviceID DeviceID, stateTypeID StateTypeID, value any, publish bool) {
	r.lock.Lock()
	if r.states[deviceID] == nil {
		r.states[deviceID] = make(map[StateTypeID]any)
	}
	r.states[deviceID][stateTypeID] = value
	r.lock.Unlock()

	if publish {
		r.Publish(Event{
			EventTypeID: EventTypeID(stateTypeID),
			DeviceID:    deviceID,
			Params:      []Param{{ParamTypeID: ParamTypeID(stateTypeID), Value: value}},
		})
	}
}

// VerifyParams checks params against the declared paramTypes. See the
// package-level VerifyParams.
func (r *Registry) VerifyParams(paramTypes []ParamType, params []Param) error {
	return VerifyParams(paramTypes, params)
}
