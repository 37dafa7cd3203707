package model

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
)

const (
	OpEquals       = "=="
	OpStrictEquals = "==="
	OpGreaterThan  = ">"
	OpLessThan     = "<"
	OpMatches      = "matches"
)

// AttributeConstraint restricts an edge's records by one of their attributes.
// A record without the attribute never satisfies the constraint.
type AttributeConstraint struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Not      bool   `json:"not,omitempty"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

func (c AttributeConstraint) Validate() error {
	switch c.Operator {
	case OpEquals, OpStrictEquals, OpGreaterThan, OpLessThan:
		return nil
	case OpMatches:
		pattern, ok := c.Value.(string)
		if !ok {
			return fmt.Errorf("constraint %q: matches requires a string pattern", c.ID)
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("constraint %q: invalid pattern: %w", c.ID, err)
		}
		return nil
	}
	return fmt.Errorf("constraint %q: unsupported operator %q", c.ID, c.Operator)
}

func (c AttributeConstraint) Matches(r Record) bool {
	actual, ok := r.Attributes[c.ID]
	if !ok {
		return false
	}
	var match bool
	switch values := actual.(type) {
	case []any:
		for _, v := range values {
			if c.compare(v) {
				match = true
				break
			}
		}
	case []string:
		for _, v := range values {
			if c.compare(v) {
				match = true
				break
			}
		}
	default:
		match = c.compare(actual)
	}
	if c.Not {
		return !match
	}
	return match
}

func (c AttributeConstraint) compare(actual any) bool {
	switch c.Operator {
	case OpStrictEquals:
		return reflect.DeepEqual(actual, c.Value)
	case OpEquals:
		if a, aok := toFloat(actual); aok {
			if b, bok := toFloat(c.Value); bok {
				return a == b
			}
		}
		return fmt.Sprint(actual) == fmt.Sprint(c.Value)
	case OpGreaterThan, OpLessThan:
		a, aok := toFloat(actual)
		b, bok := toFloat(c.Value)
		if !aok || !bok {
			return false
		}
		if c.Operator == OpGreaterThan {
			return a > b
		}
		return a < b
	case OpMatches:
		pattern, ok := c.Value.(string)
		if !ok {
			return false
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(fmt.Sprint(actual))
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
