package engine

import (
	"log/slog"

	"github.com/clambin/homehub/internal/device"
)

// LoggingExecutor logs the actions it is asked to execute. It stands in for a
// real device backend: each action is logged with its target device and
// parameters.
type LoggingExecutor struct {
	Logger *slog.Logger
}

func (l LoggingExecutor) Execute(actions []device.Action) {
	for _, action := range actions {
		l.Logger.Info("executing action",
			slog.String("device", string(action.DeviceID)),
			slog.String("actionType", string(action.ActionTypeID)),
			slog.Any("params", action.Params),
		)
	}
}

// RegistryExecutor applies actions to the device registry by writing the
// matching state, so rule effects become observable to other rules. Actions
// are applied on a separate goroutine: writing a state publishes an event,
// and the caller is typically the component draining those events.
type RegistryExecutor struct {
	Registry StateWriter
	Logger   *slog.Logger
}

// StateWriter updates a device state value.
type StateWriter interface {
	SetState(device.DeviceID, device.StateTypeID, any) error
}

func (r RegistryExecutor) Execute(actions []device.Action) {
	go func() {
		for _, action := range actions {
			for _, param := range action.Params {
				// action parameters target the state with the same type id
				if err := r.Registry.SetState(action.DeviceID, device.StateTypeID(param.ParamTypeID), param.Value); err != nil {
					r.Logger.Warn("failed to apply action",
						slog.String("device", string(action.DeviceID)),
						slog.String("actionType", string(action.ActionTypeID)),
						slog.Any("err", err),
					)
				}
			}
		}
	}()
}
