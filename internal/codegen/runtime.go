package codegen

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/hugr-lab/airport-predicate/function"
	"github.com/hugr-lab/airport-predicate/internal/enforce"
)

// Runtime helpers implement SQL semantics over the predicate value domain:
// nil is NULL, and every helper propagates it the way DuckDB does.

var (
	errDivisionByZero = errors.New("division by zero")
	errOverflow       = errors.New("integer overflow")
)

// kindOf returns the runtime kind of v.
func kindOf(v any) enforce.Kind {
	switch v.(type) {
	case nil:
		return enforce.KindNull
	case bool:
		return enforce.KindBool
	case int64:
		return enforce.KindInt
	case float64:
		return enforce.KindFloat
	case string:
		return enforce.KindString
	case []byte:
		return enforce.KindBytes
	case time.Time:
		return enforce.KindTime
	case time.Duration:
		return enforce.KindDuration
	case orb.Geometry:
		return enforce.KindGeometry
	}
	return enforce.KindAny
}

// truth converts a boolean-valued operand. nil is UNKNOWN.
func truth(v any) (val, known bool, err error) {
	switch x := v.(type) {
	case nil:
		return false, false, nil
	case bool:
		return x, true, nil
	}
	return false, false, fmt.Errorf("expected BOOLEAN, got %s", kindOf(v))
}

func sqlTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func sqlAnd(args ...any) (any, error) {
	unknown := false
	for _, a := range args {
		v, known, err := truth(a)
		if err != nil {
			return nil, err
		}
		if !known {
			unknown = true
		} else if !v {
			return false, nil
		}
	}
	if unknown {
		return nil, nil
	}
	return true, nil
}

func sqlOr(args ...any) (any, error) {
	unknown := false
	for _, a := range args {
		v, known, err := truth(a)
		if err != nil {
			return nil, err
		}
		if !known {
			unknown = true
		} else if v {
			return true, nil
		}
	}
	if unknown {
		return nil, nil
	}
	return false, nil
}

func sqlNot(args ...any) (any, error) {
	v, known, err := truth(args[0])
	if err != nil || !known {
		return nil, err
	}
	return !v, nil
}

func sqlIsNull(args ...any) (any, error) {
	return args[0] == nil, nil
}

// unify brings two non-nil operands to a common kind: integers widen to
// floats and text converts to the kind of the other operand.
func unify(l, r any) (any, any, error) {
	lk, rk := kindOf(l), kindOf(r)
	switch {
	case lk == rk:
		return l, r, nil
	case lk == enforce.KindInt && rk == enforce.KindFloat:
		return float64(l.(int64)), r, nil
	case lk == enforce.KindFloat && rk == enforce.KindInt:
		return l, float64(r.(int64)), nil
	case lk == enforce.KindString && rk != enforce.KindAny:
		v, err := enforce.Cast(l, enforce.Target{Kind: rk})
		return v, r, err
	case rk == enforce.KindString && lk != enforce.KindAny:
		v, err := enforce.Cast(r, enforce.Target{Kind: lk})
		return l, v, err
	}
	return nil, nil, fmt.Errorf("cannot compare %s and %s", lk, rk)
}

// compareValues orders two non-nil values.
func compareValues(l, r any) (int, error) {
	l, r, err := unify(l, r)
	if err != nil {
		return 0, err
	}
	switch a := l.(type) {
	case int64:
		return cmp.Compare(a, r.(int64)), nil
	case float64:
		return cmp.Compare(a, r.(float64)), nil
	case string:
		return strings.Compare(a, r.(string)), nil
	case []byte:
		return bytes.Compare(a, r.([]byte)), nil
	case bool:
		b := r.(bool)
		switch {
		case a == b:
			return 0, nil
		case !a:
			return -1, nil
		}
		return 1, nil
	case time.Time:
		return a.Compare(r.(time.Time)), nil
	case time.Duration:
		return cmp.Compare(a, r.(time.Duration)), nil
	}
	return 0, fmt.Errorf("%s values are not ordered", kindOf(l))
}

func equalValues(l, r any) (bool, error) {
	if lg, ok := l.(orb.Geometry); ok {
		rg, ok := r.(orb.Geometry)
		if !ok {
			return false, fmt.Errorf("cannot compare %s and %s", kindOf(l), kindOf(r))
		}
		return orb.Equal(lg, rg), nil
	}
	c, err := compareValues(l, r)
	return c == 0, err
}

func compareOp(op string, l, r any) (bool, error) {
	if op == "=" || op == "<>" {
		eq, err := equalValues(l, r)
		return eq == (op == "="), err
	}
	c, err := compareValues(l, r)
	if err != nil {
		return false, err
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, fmt.Errorf("unknown comparison operator %q", op)
}

// sqlCompare(op, l, r)
func sqlCompare(args ...any) (any, error) {
	l, r := args[1], args[2]
	if l == nil || r == nil {
		return nil, nil
	}
	return compareOp(args[0].(string), l, r)
}

// sqlDistinct(l, r) implements IS DISTINCT FROM.
func sqlDistinct(args ...any) (any, error) {
	l, r := args[0], args[1]
	switch {
	case l == nil && r == nil:
		return false, nil
	case l == nil || r == nil:
		return true, nil
	}
	eq, err := equalValues(l, r)
	return !eq, err
}

// sqlBetween(x, lo, hi, lowerOp, upperOp)
func sqlBetween(args ...any) (any, error) {
	x := args[0]
	lower, err := sqlCompare(args[3], x, args[1])
	if err != nil {
		return nil, err
	}
	upper, err := sqlCompare(args[4], x, args[2])
	if err != nil {
		return nil, err
	}
	return sqlAnd(lower, upper)
}

// sqlIn(x, items...). List items are flattened.
func sqlIn(args ...any) (any, error) {
	x := args[0]
	if x == nil {
		return nil, nil
	}
	sawNull := false
	for _, item := range flatten(args[1:]) {
		if item == nil {
			sawNull = true
			continue
		}
		eq, err := equalValues(x, item)
		if err != nil {
			return nil, err
		}
		if eq {
			return true, nil
		}
	}
	if sawNull {
		return nil, nil
	}
	return false, nil
}

func flatten(items []any) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		if list, ok := item.([]any); ok {
			out = append(out, list...)
			continue
		}
		out = append(out, item)
	}
	return out
}

func sqlList(args ...any) (any, error) {
	return append([]any(nil), args...), nil
}

func sqlCoalesce(args ...any) (any, error) {
	for _, a := range args {
		if a != nil {
			return a, nil
		}
	}
	return nil, nil
}

func sqlNullIf(args ...any) (any, error) {
	l, r := args[0], args[1]
	if l == nil || r == nil {
		return l, nil
	}
	eq, err := equalValues(l, r)
	if err != nil || eq {
		return nil, err
	}
	return l, nil
}

// sqlArith(op, l, r)
func sqlArith(args ...any) (any, error) {
	op, l, r := args[0].(string), args[1], args[2]
	if l == nil || r == nil {
		return nil, nil
	}
	lk, rk := kindOf(l), kindOf(r)
	switch {
	case lk == enforce.KindInt && rk == enforce.KindInt:
		return intArith(op, l.(int64), r.(int64))
	case lk.Numeric() && rk.Numeric():
		a, _ := toFloat(l)
		b, _ := toFloat(r)
		return floatArith(op, a, b)
	case lk == enforce.KindTime || lk == enforce.KindDuration || rk == enforce.KindTime || rk == enforce.KindDuration:
		return timeArith(op, l, r)
	}
	return nil, fmt.Errorf("operator %s is not defined for %s and %s", op, lk, rk)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func intArith(op string, a, b int64) (any, error) {
	switch op {
	case "+":
		if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
			return nil, fmt.Errorf("%w in addition of %d and %d", errOverflow, a, b)
		}
		return a + b, nil
	case "-":
		if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
			return nil, fmt.Errorf("%w in subtraction of %d and %d", errOverflow, a, b)
		}
		return a - b, nil
	case "*":
		if a != 0 && b != 0 {
			c := a * b
			if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
				return nil, fmt.Errorf("%w in multiplication of %d and %d", errOverflow, a, b)
			}
			return c, nil
		}
		return int64(0), nil
	case "/":
		if b == 0 {
			return nil, errDivisionByZero
		}
		return float64(a) / float64(b), nil
	case "//", "%":
		if b == 0 {
			return nil, errDivisionByZero
		}
		if a == math.MinInt64 && b == -1 {
			if op == "%" {
				return int64(0), nil
			}
			return nil, fmt.Errorf("%w in division of %d by %d", errOverflow, a, b)
		}
		if op == "%" {
			return a % b, nil
		}
		return a / b, nil
	}
	return nil, fmt.Errorf("unknown arithmetic operator %q", op)
}

func floatArith(op string, a, b float64) (any, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/", "//", "%":
		if b == 0 {
			return nil, errDivisionByZero
		}
		switch op {
		case "//":
			return math.Trunc(a / b), nil
		case "%":
			return math.Mod(a, b), nil
		}
		return a / b, nil
	}
	return nil, fmt.Errorf("unknown arithmetic operator %q", op)
}

func timeArith(op string, l, r any) (any, error) {
	switch a := l.(type) {
	case time.Time:
		switch b := r.(type) {
		case time.Duration:
			if op == "+" {
				return a.Add(b), nil
			}
			if op == "-" {
				return a.Add(-b), nil
			}
		case time.Time:
			if op == "-" {
				return a.Sub(b), nil
			}
		}
	case time.Duration:
		switch b := r.(type) {
		case time.Duration:
			if op == "+" {
				return a + b, nil
			}
			if op == "-" {
				return a - b, nil
			}
		case time.Time:
			if op == "+" {
				return b.Add(a), nil
			}
		}
	}
	return nil, fmt.Errorf("operator %s is not defined for %s and %s", op, kindOf(l), kindOf(r))
}

func sqlNeg(args ...any) (any, error) {
	switch x := args[0].(type) {
	case nil:
		return nil, nil
	case int64:
		if x == math.MinInt64 {
			return nil, fmt.Errorf("%w in negation of %d", errOverflow, x)
		}
		return -x, nil
	case float64:
		return -x, nil
	case time.Duration:
		return -x, nil
	}
	return nil, fmt.Errorf("cannot negate %s", kindOf(args[0]))
}

// sqlConcat(args...) implements ||: NULL when any operand is NULL.
func sqlConcat(args ...any) (any, error) {
	var sb strings.Builder
	for _, a := range args {
		if a == nil {
			return nil, nil
		}
		s, err := enforce.Cast(a, enforce.Target{Kind: enforce.KindString})
		if err != nil {
			return nil, err
		}
		sb.WriteString(s.(string))
	}
	return sb.String(), nil
}

// sqlCall(instance, args...) invokes a function instance slot.
func sqlCall(args ...any) (any, error) {
	inst, ok := args[0].(function.Instance)
	if !ok {
		return nil, fmt.Errorf("function slot holds %T, not a function instance", args[0])
	}
	return inst.Call(args[1:])
}

// compilePattern compiles pattern for the operator po.
func compilePattern(pattern string, po patternOp) (*regexp.Regexp, error) {
	src := pattern
	switch {
	case po.like:
		src = likeToRegexp(pattern)
	case po.full:
		src = `^(?:` + pattern + `)$`
	}
	if po.fold {
		src = "(?i)" + src
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

// likeToRegexp translates a LIKE pattern. A backslash escapes the next
// character.
func likeToRegexp(pattern string) string {
	var sb strings.Builder
	sb.WriteString(`(?s)^`)
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			sb.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			sb.WriteString(".*")
		case r == '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return sb.String()
}

type patternOp struct {
	like   bool
	fold   bool
	negate bool
	full   bool
}

// patternOps maps DuckDB pattern operators. "~" is a full regular
// expression match.
var patternOps = map[string]patternOp{
	"~~":   {like: true},
	"!~~":  {like: true, negate: true},
	"~~*":  {like: true, fold: true},
	"!~~*": {like: true, fold: true, negate: true},
	"~":    {full: true},
	"!~":   {full: true, negate: true},
	"~*":   {full: true, fold: true},
	"!~*":  {full: true, fold: true, negate: true},
}

// sqlMatch(op, s, pattern) matches s against a pattern computed per row.
// The pattern is compiled on every call so that evaluations keep no state.
func sqlMatch(args ...any) (any, error) {
	op, s, p := args[0].(string), args[1], args[2]
	if s == nil || p == nil {
		return nil, nil
	}
	po, ok := patternOps[op]
	if !ok {
		return nil, fmt.Errorf("unknown pattern operator %q", op)
	}
	str, err := enforce.Cast(s, enforce.Target{Kind: enforce.KindString})
	if err != nil {
		return nil, err
	}
	pat, err := enforce.Cast(p, enforce.Target{Kind: enforce.KindString})
	if err != nil {
		return nil, err
	}
	re, err := compilePattern(pat.(string), po)
	if err != nil {
		return nil, err
	}
	return re.MatchString(str.(string)) != po.negate, nil
}

// matcher is a constant pattern compiled while lowering.
type matcher struct {
	re     *regexp.Regexp
	negate bool
}

// match implements sqlMatchConst(i, s) for the i-th precompiled pattern.
func (m matcher) match(s any) (any, error) {
	if s == nil {
		return nil, nil
	}
	str, err := enforce.Cast(s, enforce.Target{Kind: enforce.KindString})
	if err != nil {
		return nil, err
	}
	return m.re.MatchString(str.(string)) != m.negate, nil
}
