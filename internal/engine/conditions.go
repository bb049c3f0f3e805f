package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator is the comparison operator of a step condition.
type Operator string

const (
	OpEq Operator = "=="
	OpNe Operator = "!="
	OpGt Operator = ">"
	OpLt Operator = "<"
	OpGe Operator = ">="
	OpLe Operator = "<="
)

// Condition is a parsed step condition: a single comparison of one data
// field against a literal. The zero value is never used; ParseCondition
// produces either an always-true condition or a full comparison.
type Condition struct {
	Always   bool
	Field    string
	Operator Operator
	Literal  string
}

// ParseCondition parses the external "field operator literal" syntax.
// An empty or whitespace-only expression is always satisfied. An
// expression that does not split into exactly three tokens is also
// treated as always satisfied: template authoring stays permissive and
// malformed conditions degrade to "run the step" instead of failing.
// An unknown operator is the one hard error, so it can be rejected at
// template save time.
func ParseCondition(expr string) (Condition, error) {
	tokens := strings.Fields(expr)
	if len(tokens) == 0 {
		return Condition{Always: true}, nil
	}
	if len(tokens) != 3 {
		return Condition{Always: true}, nil
	}
	op, ok := parseOperator(tokens[1])
	if !ok {
		return Condition{}, fmt.Errorf("unknown operator %q in condition %q", tokens[1], expr)
	}
	return Condition{Field: tokens[0], Operator: op, Literal: tokens[2]}, nil
}

func parseOperator(token string) (Operator, bool) {
	switch token {
	case "=", "==":
		return OpEq, true
	case "!=":
		return OpNe, true
	case ">":
		return OpGt, true
	case "<":
		return OpLt, true
	case ">=":
		return OpGe, true
	case "<=":
		return OpLe, true
	}
	return "", false
}

// EvaluateCondition parses and evaluates a raw condition string against the
// instance data. A stored condition that no longer parses (unknown
// operator) evaluates to false: the step is never eligible.
func EvaluateCondition(expr string, data map[string]any) bool {
	cond, err := ParseCondition(expr)
	if err != nil {
		return false
	}
	return cond.Evaluate(data)
}

// Evaluate is a pure match of the condition over the data record.
//
// The literal is always a string token; the data value decides the
// comparison mode:
//   - numeric value: the literal is parsed as a number and all operators
//     compare numerically. If the literal is not numeric, equality falls
//     back to comparing the formatted value, ordering is false.
//   - bool value: the literal is parsed with strconv.ParseBool; only
//     equality operators apply, ordering is false.
//   - string value: if both sides parse as numbers they compare
//     numerically, otherwise lexicographically.
//
// A field absent from the data always evaluates to false.
func (c Condition) Evaluate(data map[string]any) bool {
	if c.Always {
		return true
	}
	value, ok := data[c.Field]
	if !ok {
		return false
	}
	switch v := value.(type) {
	case bool:
		b, err := strconv.ParseBool(c.Literal)
		if err != nil {
			return false
		}
		switch c.Operator {
		case OpEq:
			return v == b
		case OpNe:
			return v != b
		}
		return false
	case string:
		if lf, err := strconv.ParseFloat(v, 64); err == nil {
			if rf, err := strconv.ParseFloat(c.Literal, 64); err == nil {
				return compareFloats(lf, c.Operator, rf)
			}
		}
		return compareStrings(v, c.Operator, c.Literal)
	default:
		f, ok := toFloat(value)
		if !ok {
			return false
		}
		rf, err := strconv.ParseFloat(c.Literal, 64)
		if err != nil {
			formatted := strconv.FormatFloat(f, 'f', -1, 64)
			switch c.Operator {
			case OpEq:
				return formatted == c.Literal
			case OpNe:
				return formatted != c.Literal
			}
			return false
		}
		return compareFloats(f, c.Operator, rf)
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func compareFloats(l float64, op Operator, r float64) bool {
	switch op {
	case OpEq:
		return l == r
	case OpNe:
		return l != r
	case OpGt:
		return l > r
	case OpLt:
		return l < r
	case OpGe:
		return l >= r
	case OpLe:
		return l <= r
	}
	return false
}

func compareStrings(l string, op Operator, r string) bool {
	switch op {
	case OpEq:
		return l == r
	case OpNe:
		return l != r
	case OpGt:
		return l > r
	case OpLt:
		return l < r
	case OpGe:
		return l >= r
	case OpLe:
		return l <= r
	}
	return false
}
