package rules

import "reflect"

// ValueOperator compares an observed value against a reference value.
type ValueOperator string

const (
	OperatorEquals         ValueOperator = "="
	OperatorNotEquals      ValueOperator = "!="
	OperatorLess           ValueOperator = "<"
	OperatorGreater        ValueOperator = ">"
	OperatorLessOrEqual    ValueOperator = "<="
	OperatorGreaterOrEqual ValueOperator = ">="
)

func (op ValueOperator) IsValid() bool {
	switch op {
	case OperatorEquals, OperatorNotEquals, OperatorLess, OperatorGreater, OperatorLessOrEqual, OperatorGreaterOrEqual:
		return true
	}
	return false
}

// Compare applies the operator to (value, reference). Numeric values are
// coerced to float64 first, so values that passed through JSON still compare
// against their original type. Ordering operators on non-numeric values
// return false.
func (op ValueOperator) Compare(value, reference any) bool {
	vn, vok := toFloat64(value)
	rn, rok := toFloat64(reference)
	numeric := vok && rok

	switch op {
	case OperatorEquals:
		if numeric {
			return vn == rn
		}
		return reflect.DeepEqual(value, reference)
	case OperatorNotEquals:
		if numeric {
			return vn != rn
		}
		return !reflect.DeepEqual(value, reference)
	case OperatorLess:
		return numeric && vn < rn
	case OperatorGreater:
		return numeric && vn > rn
	case OperatorLessOrEqual:
		return numeric && vn <= rn
	case OperatorGreaterOrEqual:
		return numeric && vn >= rn
	}
	return false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
