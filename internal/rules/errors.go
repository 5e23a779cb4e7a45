package rules

import "errors"

// The closed set of errors returned by rule engine operations. Callers match
// them with errors.Is; a nil error means the operation succeeded.
var (
	ErrInvalidRuleID              = errors.New("invalid rule id")
	ErrRuleNotFound               = errors.New("rule not found")
	ErrDeviceNotFound             = errors.New("device not found")
	ErrEventTypeNotFound          = errors.New("event type not found")
	ErrStateTypeNotFound          = errors.New("state type not found")
	ErrActionTypeNotFound         = errors.New("action type not found")
	ErrInvalidParameter           = errors.New("invalid parameter")
	ErrInvalidRuleFormat          = errors.New("invalid rule format")
	ErrMissingParameter           = errors.New("missing parameter")
	ErrInvalidRuleActionParameter = errors.New("invalid rule action parameter")
	ErrInvalidStateEvaluatorValue = errors.New("invalid state evaluator")
	ErrTypesNotMatching           = errors.New("event and action parameter types do not match")
	ErrNotExecutable              = errors.New("rule is not executable")
	ErrInvalidRepeatingOption     = errors.New("invalid repeating option")
	ErrInvalidCalendarItem        = errors.New("invalid calendar item")
	ErrInvalidTimeDescriptor      = errors.New("invalid time descriptor")
	ErrInvalidTimeEventItem       = errors.New("invalid time event item")
	ErrContainsEventBasedAction   = errors.New("rule action depends on an event value")
	ErrNoExitActions              = errors.New("rule has no exit actions")
)
