package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/san-kum/tdmraster/internal/geometry"
)

var ErrExpression = errors.New("config: invalid expression")

// ParamEnv exposes the current parameters to expressions, so that
// "--fpl 480/ts" or "--offset 8*bpts" work.
func ParamEnv(p geometry.Params) map[string]any {
	return map[string]any{
		"ts":     p.TS,
		"bpts":   p.BPTS,
		"fpl":    p.FPL,
		"offset": p.Offset,
		"zoom":   p.Zoom,
		"rbpp":   p.RBPP,
		"gbpp":   p.GBPP,
		"bbpp":   p.BBPP,
	}
}

// EvalInt evaluates an arithmetic expression to an integer. Plain integers
// skip the evaluator and are always decimal, so "010" is ten. Fractional
// results are truncated toward zero.
func EvalInt(expression string, env map[string]any) (int64, error) {
	s := strings.TrimSpace(expression)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrExpression)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	out, err := expr.Eval(s, env)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrExpression, s, err)
	}
	switch v := out.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %q is not finite", ErrExpression, s)
		}
		return int64(v), nil
	}
	return 0, fmt.Errorf("%w: %q is %T, not a number", ErrExpression, s, out)
}

// EvalParam evaluates expression and checks it against min, naming the
// parameter in the error.
func EvalParam(name, expression string, min int64, env map[string]any) (int64, error) {
	v, err := EvalInt(expression, env)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if v < min {
		return 0, fmt.Errorf("%w: %s must be >= %d, got %d", geometry.ErrParameterBounds, name, min, v)
	}
	return v, nil
}
