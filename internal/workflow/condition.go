package workflow

import (
	"fmt"
	"strconv"

	"github.com/buildcore-ai/be-ops-approvals/internal/errors"
)

// Op is a condition comparison operator.
type Op string

const (
	OpGT Op = "GT"
	OpLT Op = "LT"
	OpEQ Op = "EQ"
)

// ParseOp converts the stored operator symbol into an Op.
func ParseOp(symbol string) (Op, error) {
	switch symbol {
	case ">":
		return OpGT, nil
	case "<":
		return OpLT, nil
	case "==", "=":
		return OpEQ, nil
	}
	return "", errors.InvalidInput("operator", fmt.Sprintf("unknown operator %q", symbol))
}

// Symbol returns the stored form of the operator.
func (o Op) Symbol() string {
	switch o {
	case OpGT:
		return ">"
	case OpLT:
		return "<"
	case OpEQ:
		return "=="
	}
	return string(o)
}

// Condition compares one payload field against a fixed value. All of a
// definition's conditions must hold for the definition to match.
type Condition struct {
	Field string `json:"field" validate:"required"`
	Op    Op     `json:"op" validate:"required,oneof=GT LT EQ"`
	Value any    `json:"value"`
}

// Payload is the request attribute map conditions are evaluated against.
type Payload map[string]any

// Eval evaluates the condition against the payload. A field absent from the
// payload is a validation failure, not a silent non-match; so is a
// non-numeric operand under an ordering operator.
func (c Condition) Eval(p Payload) (bool, error) {
	got, ok := p[c.Field]
	if !ok {
		return false, errors.InvalidInput(c.Field, "field not present in request payload")
	}

	switch c.Op {
	case OpGT, OpLT:
		lhs, err := toNumber(c.Field, got)
		if err != nil {
			return false, err
		}
		rhs, err := toNumber(c.Field, c.Value)
		if err != nil {
			return false, err
		}
		if c.Op == OpGT {
			return lhs > rhs, nil
		}
		return lhs < rhs, nil

	case OpEQ:
		// Loose equality: compare canonical string forms so 50000,
		// 50000.0 and "50000" are all equal.
		return looseString(got) == looseString(c.Value), nil
	}

	return false, errors.InvalidInput("op", fmt.Sprintf("unknown operator %q", c.Op))
}

// toNumber coerces the numeric representations that survive JSON and SQL
// round-trips. Anything else fails validation.
func toNumber(field string, v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err == nil {
			return f, nil
		}
	}
	return 0, errors.InvalidInput(field, fmt.Sprintf("value %v is not numeric", v))
}

func looseString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int32:
		return strconv.FormatInt(int64(s), 10)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}
