package device

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingParameter indicates a required parameter was not supplied.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrInvalidParameter indicates a supplied parameter is unknown, of the
	// wrong type, or outside its declared constraints.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// VerifyParams checks the supplied params against the declared param types:
// all required params must be present, no unknown params are allowed, and
// every value must match its declared type and min/max constraints.
func VerifyParams(paramTypes []ParamType, params []Param) error {
	for _, pt := range paramTypes {
		var supplied *Param
		for i := range params {
			if params[i].ParamTypeID == pt.ID {
				supplied = &params[i]
				break
			}
		}
		if supplied == nil {
			if pt.Required {
				return fmt.Errorf("%w: %s", ErrMissingParameter, pt.Name)
			}
			continue
		}
		if err := verifyParam(pt, *supplied); err != nil {
			return err
		}
	}

	for _, p := range params {
		if !hasParamType(paramTypes, p.ParamTypeID) {
			return fmt.Errorf("%w: unknown param %q", ErrInvalidParameter, p.ParamTypeID)
		}
	}
	return nil
}

func verifyParam(pt ParamType, p Param) error {
	if !pt.Type.Matches(p.Value) {
		return fmt.Errorf("%w: %s must be of type %s", ErrInvalidParameter, pt.Name, pt.Type)
	}
	if pt.Min != nil || pt.Max != nil {
		n, ok := toFloat64(p.Value)
		if !ok {
			return fmt.Errorf("%w: %s is not numeric", ErrInvalidParameter, pt.Name)
		}
		if pt.Min != nil && n < *pt.Min {
			return fmt.Errorf("%w: %s below minimum %v", ErrInvalidParameter, pt.Name, *pt.Min)
		}
		if pt.Max != nil && n > *pt.Max {
			return fmt.Errorf("%w: %s above maximum %v", ErrInvalidParameter, pt.Name, *pt.Max)
		}
	}
	return nil
}

func hasParamType(paramTypes []ParamType, id ParamTypeID) bool {
	for _, pt := range paramTypes {
		if pt.ID == id {
			return true
		}
	}
	return false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
