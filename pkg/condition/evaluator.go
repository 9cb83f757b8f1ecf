package condition

import (
	"fmt"
	"regexp"
	"strings"
)

type Operator string

const (
	OperatorEquals      Operator = "eq"
	OperatorNotEquals   Operator = "neq"
	OperatorGreaterThan Operator = "gt"
	OperatorGreaterEq   Operator = "gte"
	OperatorLessThan    Operator = "lt"
	OperatorLessEq      Operator = "lte"
	OperatorContains    Operator = "contains"
	OperatorNotContains Operator = "not_contains"
	OperatorIn          Operator = "in"
	OperatorNotIn       Operator = "not_in"
	OperatorRegex       Operator = "regex"
)

// Condition is a single predicate over an event payload. Field is a dot-path
// into the payload, e.g. "document.type".
type Condition struct {
	Field    string      `json:"field" bson:"field"`
	Operator Operator    `json:"operator" bson:"operator"`
	Value    interface{} `json:"value" bson:"value"`
}

// Evaluate resolves the condition's field in data and applies the operator.
// Any missing field, unknown operator, or operator/type mismatch evaluates to
// false; Evaluate never panics and has no side effects.
func Evaluate(cond Condition, data map[string]interface{}) bool {
	val, ok := Resolve(data, cond.Field)

	switch cond.Operator {
	case OperatorEquals:
		return ok && equals(val, cond.Value)
	case OperatorNotEquals:
		return !ok || !equals(val, cond.Value)
	case OperatorGreaterThan:
		return ok && compareNumeric(val, cond.Value, func(a, b float64) bool { return a > b })
	case OperatorGreaterEq:
		return ok && compareNumeric(val, cond.Value, func(a, b float64) bool { return a >= b })
	case OperatorLessThan:
		return ok && compareNumeric(val, cond.Value, func(a, b float64) bool { return a < b })
	case OperatorLessEq:
		return ok && compareNumeric(val, cond.Value, func(a, b float64) bool { return a <= b })
	case OperatorContains:
		return ok && contains(val, cond.Value)
	case OperatorNotContains:
		return ok && !contains(val, cond.Value)
	case OperatorIn:
		return ok && inList(val, cond.Value)
	case OperatorNotIn:
		// A non-list condition value cannot be satisfied for either membership
		// operator, so the negation must not turn it into a match.
		_, isList := cond.Value.([]interface{})
		return ok && isList && !inList(val, cond.Value)
	case OperatorRegex:
		return ok && matchesRegex(val, cond.Value)
	default:
		return false
	}
}

// All evaluates a conjunction of conditions. An empty list matches
// unconditionally.
func All(conds []Condition, data map[string]interface{}) bool {
	for _, c := range conds {
		if !Evaluate(c, data) {
			return false
		}
	}
	return true
}

// Resolve walks a dot-path through nested maps. The second return is false
// when any segment is missing or a non-map is traversed into.
func Resolve(data map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}

	var current interface{} = data
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func equals(a, b interface{}) bool {
	// Numeric values compare numerically so 5 == 5.0 regardless of how the
	// payload was decoded.
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func compareNumeric(a, b interface{}, cmp func(a, b float64) bool) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return false
	}
	return cmp(af, bf)
}

func contains(val, sub interface{}) bool {
	switch v := val.(type) {
	case string:
		return strings.Contains(v, fmt.Sprintf("%v", sub))
	case []interface{}:
		for _, item := range v {
			if equals(item, sub) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// inList requires the condition value to be a list.
func inList(val, list interface{}) bool {
	items, ok := list.([]interface{})
	if !ok {
		return false
	}
	for _, item := range items {
		if equals(val, item) {
			return true
		}
	}
	return false
}

func matchesRegex(val, pattern interface{}) bool {
	patternStr, ok := pattern.(string)
	if !ok {
		return false
	}
	re, err := regexp.Compile(patternStr)
	if err != nil {
		return false
	}
	return re.MatchString(fmt.Sprintf("%v", val))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
