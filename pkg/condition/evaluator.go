// Package condition evaluates the data-driven routing rules of condition nodes.
//
// Evaluation is total over arbitrary submitted data: a missing field, a value
// that cannot be parsed or an unknown operator resolves to false and is never
// reported as an error.
package condition

import (
	"log/slog"
	"reflect"
	"strings"

	"github.com/aretw0/signoff/internal/logging"
	"github.com/aretw0/signoff/pkg/domain"
)

// Operators understood by Evaluate.
const (
	OpGreater      = ">"
	OpLess         = "<"
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
	OpEqual        = "=="
	OpNotEqual     = "!="
	OpContains     = "contains"
	OpStartsWith   = "startsWith"
	OpEndsWith     = "endsWith"
	OpIsEmpty      = "isEmpty"
	OpIsNotEmpty   = "isNotEmpty"
)

// Evaluator evaluates conditions against instance data.
// It holds no state besides its logger and is safe for concurrent use.
type Evaluator struct {
	logger *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used to report unknown operators.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEvaluator = New()

// Evaluate evaluates a single condition with the default evaluator.
func Evaluate(data map[string]any, c domain.Condition) bool {
	return defaultEvaluator.Evaluate(data, c)
}

// EvaluateGroup evaluates a condition group with the default evaluator.
func EvaluateGroup(data map[string]any, g domain.ConditionGroup) bool {
	return defaultEvaluator.EvaluateGroup(data, g)
}

// EvaluateRules selects the first matching rule with the default evaluator.
func EvaluateRules(data map[string]any, rules []domain.Rule) (*domain.Rule, bool) {
	return defaultEvaluator.EvaluateRules(data, rules)
}

// Evaluate compares data[c.Field] against c.Value using c.Operator.
func (e *Evaluator) Evaluate(data map[string]any, c domain.Condition) bool {
	actual, exists := data[c.Field]

	// Emptiness tests are the only ones meaningful on a missing field.
	switch c.Operator {
	case OpIsEmpty:
		return isEmpty(actual)
	case OpIsNotEmpty:
		return !isEmpty(actual)
	}

	if !exists || actual == nil {
		return false
	}

	switch c.Operator {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		left, okL := toNumber(actual)
		right, okR := toNumber(c.Value)
		if !okL || !okR {
			return false
		}
		switch c.Operator {
		case OpGreater:
			return left > right
		case OpLess:
			return left < right
		case OpGreaterEqual:
			return left >= right
		default:
			return left <= right
		}

	case OpEqual:
		return equals(actual, c.Value)
	case OpNotEqual:
		return !equals(actual, c.Value)

	case OpContains:
		return strings.Contains(lower(actual), lower(c.Value))
	case OpStartsWith:
		return strings.HasPrefix(lower(actual), lower(c.Value))
	case OpEndsWith:
		return strings.HasSuffix(lower(actual), lower(c.Value))
	}

	e.logger.Warn("unknown condition operator", "operator", c.Operator, "field", c.Field)
	return false
}

// EvaluateGroup combines the conditions of g.
// An empty group never matches, whatever its logic, so that a rule without
// conditions cannot silently capture every submission.
func (e *Evaluator) EvaluateGroup(data map[string]any, g domain.ConditionGroup) bool {
	if len(g.Conditions) == 0 {
		return false
	}

	if strings.EqualFold(string(g.Logic), string(domain.LogicOr)) {
		for _, c := range g.Conditions {
			if e.Evaluate(data, c) {
				return true
			}
		}
		return false
	}

	for _, c := range g.Conditions {
		if !e.Evaluate(data, c) {
			return false
		}
	}
	return true
}

// EvaluateRules returns the first rule whose group matches, in declaration order.
// It returns false when no rule matches; the caller supplies the default.
func (e *Evaluator) EvaluateRules(data map[string]any, rules []domain.Rule) (*domain.Rule, bool) {
	for i := range rules {
		if e.EvaluateGroup(data, rules[i].Group) {
			return &rules[i], true
		}
	}
	return nil, false
}

func equals(actual, expected any) bool {
	left, okL := toNumber(actual)
	right, okR := toNumber(expected)
	if okL && okR {
		return left == right
	}
	return strings.EqualFold(toString(actual), toString(expected))
}

func lower(v any) string {
	return strings.ToLower(toString(v))
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
