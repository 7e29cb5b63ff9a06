package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hugr-lab/airport-predicate/filter"
	"github.com/hugr-lab/airport-predicate/internal/binder"
	"github.com/hugr-lab/airport-predicate/internal/enforce"
)

// lowerer translates filter expressions into expr-lang source that calls
// the runtime helpers, inferring the static kind of every node on the way.
type lowerer struct {
	fp      *filter.FilterPushdown
	binding *binder.Binding
	consts   []any
	targets  []enforce.Target
	matchers []matcher
}

var comparisonOps = map[filter.ExpressionType]string{
	filter.TypeCompareEqual:              "=",
	filter.TypeCompareNotEqual:           "<>",
	filter.TypeCompareLessThan:           "<",
	filter.TypeCompareGreaterThan:        ">",
	filter.TypeCompareLessThanOrEqual:    "<=",
	filter.TypeCompareGreaterThanOrEqual: ">=",
}

func call(name string, args ...string) string {
	return name + "(" + strings.Join(args, ", ") + ")"
}

func boolish(k enforce.Kind) bool {
	return k == enforce.KindBool || k == enforce.KindNull || k == enforce.KindAny
}

func unknown(k enforce.Kind) bool {
	return k == enforce.KindAny || k == enforce.KindNull
}

// comparableKinds reports whether values of kinds a and b can be compared.
// Text compares with anything through an implicit cast.
func comparableKinds(a, b enforce.Kind) bool {
	switch {
	case a == b, unknown(a), unknown(b):
		return true
	case a.Numeric() && b.Numeric():
		return true
	case a == enforce.KindString || b == enforce.KindString:
		return true
	}
	return false
}

// castable reports whether a value of kind from may be cast to kind to.
func castable(from, to enforce.Kind) bool {
	switch {
	case from == to, unknown(from), unknown(to):
		return true
	case from == enforce.KindString || to == enforce.KindString:
		return true
	case from.Numeric() && (to.Numeric() || to == enforce.KindBool):
		return true
	case from == enforce.KindBool && to.Numeric():
		return true
	case from == enforce.KindBytes && to == enforce.KindGeometry:
		return true
	case from == enforce.KindInt && (to == enforce.KindTime || to == enforce.KindDuration):
		return true
	}
	return false
}

// merge returns the common kind of two branches of a CASE or COALESCE.
func merge(a, b enforce.Kind) (enforce.Kind, bool) {
	switch {
	case a == b:
		return a, true
	case a == enforce.KindNull:
		return b, true
	case b == enforce.KindNull:
		return a, true
	case unknown(a) || unknown(b):
		return enforce.KindAny, true
	case a.Numeric() && b.Numeric():
		return enforce.KindFloat, true
	}
	return enforce.KindAny, false
}

func (l *lowerer) constant(v any) string {
	l.consts = append(l.consts, v)
	return call("sqlConst", strconv.Itoa(len(l.consts)-1))
}

// constantList folds a list of constants into a single constant slice so
// that long IN lists stay one node in the generated program. It reports
// false when any element is not a constant.
func (l *lowerer) constantList(exprs []filter.Expression) (string, bool, error) {
	if len(exprs) == 0 {
		return "", false, nil
	}
	list := make([]any, len(exprs))
	for i, e := range exprs {
		c, ok := e.(*filter.ConstantExpression)
		if !ok {
			return "", false, nil
		}
		v, err := enforce.Literal(c.Value)
		if err != nil {
			return "", false, err
		}
		list[i] = v
	}
	return l.constant(list), true, nil
}

// constantPattern precompiles the pattern of a match operator when it is a
// non-NULL string constant. It reports false otherwise, leaving the pattern
// to be compiled per row.
func (l *lowerer) constantPattern(op string, e filter.Expression) (string, bool) {
	c, ok := e.(*filter.ConstantExpression)
	if !ok {
		return "", false
	}
	v, err := enforce.Literal(c.Value)
	if err != nil {
		return "", false
	}
	pattern, ok := v.(string)
	if !ok {
		return "", false
	}
	po := patternOps[op]
	re, err := compilePattern(pattern, po)
	if err != nil {
		return "", false
	}
	l.matchers = append(l.matchers, matcher{re: re, negate: po.negate})
	return strconv.Itoa(len(l.matchers) - 1), true
}

func (l *lowerer) lowerAll(exprs []filter.Expression) ([]string, []enforce.Kind, error) {
	srcs := make([]string, len(exprs))
	kinds := make([]enforce.Kind, len(exprs))
	for i, e := range exprs {
		src, k, err := l.lower(e)
		if err != nil {
			return nil, nil, err
		}
		srcs[i], kinds[i] = src, k
	}
	return srcs, kinds, nil
}

func (l *lowerer) lower(e filter.Expression) (string, enforce.Kind, error) {
	switch ex := e.(type) {
	case *filter.ConstantExpression:
		v, err := enforce.Literal(ex.Value)
		if err != nil {
			return "", 0, err
		}
		if v == nil {
			return "nil", enforce.KindNull, nil
		}
		return l.constant(v), kindOf(v), nil

	case *filter.ColumnRefExpression:
		name, err := l.fp.ColumnName(ex)
		if err != nil {
			return "", 0, err
		}
		p, ok := l.binding.Column(name)
		if !ok {
			return "", 0, fmt.Errorf("column %s is not bound", name)
		}
		return p.Var, enforce.TargetOf(p.Type).Kind, nil

	case *filter.ComparisonExpression:
		return l.comparison(ex)

	case *filter.ConjunctionExpression:
		srcs, kinds, err := l.lowerAll(ex.Children)
		if err != nil {
			return "", 0, err
		}
		for i, k := range kinds {
			if !boolish(k) {
				return "", 0, fmt.Errorf("argument %d of %s must be BOOLEAN, got %s", i+1, ex.Type(), k)
			}
		}
		if ex.Type() == filter.TypeConjunctionOr {
			return call("sqlOr", srcs...), enforce.KindBool, nil
		}
		return call("sqlAnd", srcs...), enforce.KindBool, nil

	case *filter.FunctionExpression:
		if ex.Native() {
			return l.native(ex)
		}
		return l.call(ex)

	case *filter.CastExpression:
		child, from, err := l.lower(ex.Child)
		if err != nil {
			return "", 0, err
		}
		target := enforce.LogicalTarget(ex.ReturnType)
		if target.Type == nil {
			return "", 0, fmt.Errorf("unsupported cast target type %s", filter.TypeName(ex.ReturnType))
		}
		if !castable(from, target.Kind) {
			return "", 0, fmt.Errorf("cannot cast %s to %s", from, filter.TypeName(ex.ReturnType))
		}
		l.targets = append(l.targets, target)
		idx := strconv.Itoa(len(l.targets) - 1)
		return call("sqlCast", child, idx, strconv.FormatBool(ex.TryCast)), target.Kind, nil

	case *filter.BetweenExpression:
		return l.between(ex)

	case *filter.OperatorExpression:
		return l.operator(ex)

	case *filter.CaseExpression:
		return l.caseExpr(ex)
	}
	return "", 0, fmt.Errorf("cannot evaluate %s expression %s per row", e.Class(), e.Type())
}

func (l *lowerer) comparison(c *filter.ComparisonExpression) (string, enforce.Kind, error) {
	left, lk, err := l.lower(c.Left)
	if err != nil {
		return "", 0, err
	}
	right, rk, err := l.lower(c.Right)
	if err != nil {
		return "", 0, err
	}

	switch c.Type() {
	case filter.TypeCompareIn:
		return call("sqlIn", left, right), enforce.KindBool, nil
	case filter.TypeCompareNotIn:
		return call("sqlNot", call("sqlIn", left, right)), enforce.KindBool, nil
	}

	if !comparableKinds(lk, rk) {
		return "", 0, fmt.Errorf("cannot compare %s and %s", lk, rk)
	}
	switch c.Type() {
	case filter.TypeCompareDistinctFrom:
		return call("sqlDistinct", left, right), enforce.KindBool, nil
	case filter.TypeCompareNotDistinctFrom:
		return call("sqlNot", call("sqlDistinct", left, right)), enforce.KindBool, nil
	}
	op, ok := comparisonOps[c.Type()]
	if !ok {
		return "", 0, fmt.Errorf("unsupported comparison %s", c.Type())
	}
	return call("sqlCompare", strconv.Quote(op), left, right), enforce.KindBool, nil
}

func (l *lowerer) between(b *filter.BetweenExpression) (string, enforce.Kind, error) {
	srcs, kinds, err := l.lowerAll([]filter.Expression{b.Input, b.Lower, b.Upper})
	if err != nil {
		return "", 0, err
	}
	for _, k := range kinds[1:] {
		if !comparableKinds(kinds[0], k) {
			return "", 0, fmt.Errorf("cannot compare %s and %s", kinds[0], k)
		}
	}

	lo, hi := ">", "<"
	if b.LowerInclusive {
		lo = ">="
	}
	if b.UpperInclusive {
		hi = "<="
	}
	src := call("sqlBetween", srcs[0], srcs[1], srcs[2], strconv.Quote(lo), strconv.Quote(hi))
	if b.Type() == filter.TypeCompareNotBetween {
		src = call("sqlNot", src)
	}
	return src, enforce.KindBool, nil
}

func (l *lowerer) native(f *filter.FunctionExpression) (string, enforce.Kind, error) {
	if f.Name == filter.FunctionListValue {
		src, ok, err := l.constantList(f.Children)
		if err != nil {
			return "", 0, err
		}
		if ok {
			return src, enforce.KindAny, nil
		}
	}

	args, kinds, err := l.lowerAll(f.Children)
	if err != nil {
		return "", 0, err
	}

	if _, ok := patternOps[f.Name]; ok {
		if len(args) != 2 {
			return "", 0, fmt.Errorf("operator %s expects 2 arguments, got %d", f.Name, len(args))
		}
		for _, k := range kinds {
			if !unknown(k) && k != enforce.KindString {
				return "", 0, fmt.Errorf("operator %s expects VARCHAR arguments, got %s", f.Name, k)
			}
		}
		if idx, ok := l.constantPattern(f.Name, f.Children[1]); ok {
			return call("sqlMatchConst", idx, args[0]), enforce.KindBool, nil
		}
		return call("sqlMatch", strconv.Quote(f.Name), args[0], args[1]), enforce.KindBool, nil
	}

	switch f.Name {
	case "+", "-", "*", "/", "//", "%":
		switch len(args) {
		case 1:
			if f.Name == "+" {
				return args[0], kinds[0], nil
			}
			if f.Name == "-" {
				if !unknown(kinds[0]) && !kinds[0].Numeric() && kinds[0] != enforce.KindDuration {
					return "", 0, fmt.Errorf("cannot negate %s", kinds[0])
				}
				return call("sqlNeg", args[0]), kinds[0], nil
			}
		case 2:
			k, err := arithKind(f.Name, kinds[0], kinds[1])
			if err != nil {
				return "", 0, err
			}
			return call("sqlArith", strconv.Quote(f.Name), args[0], args[1]), k, nil
		}
		return "", 0, fmt.Errorf("operator %s expects 2 arguments, got %d", f.Name, len(args))
	case "||":
		return call("sqlConcat", args...), enforce.KindString, nil
	case filter.FunctionListValue:
		return call("sqlList", args...), enforce.KindAny, nil
	}
	return "", 0, fmt.Errorf("unsupported operator %s", f.Name)
}

func arithKind(op string, a, b enforce.Kind) (enforce.Kind, error) {
	additive := op == "+" || op == "-"
	switch {
	case unknown(a) || unknown(b):
		return enforce.KindAny, nil
	case a.Numeric() && b.Numeric():
		if op == "/" || a == enforce.KindFloat || b == enforce.KindFloat {
			return enforce.KindFloat, nil
		}
		return enforce.KindInt, nil
	case a == enforce.KindTime && b == enforce.KindDuration && additive:
		return enforce.KindTime, nil
	case a == enforce.KindDuration && b == enforce.KindTime && op == "+":
		return enforce.KindTime, nil
	case a == enforce.KindTime && b == enforce.KindTime && op == "-":
		return enforce.KindDuration, nil
	case a == enforce.KindDuration && b == enforce.KindDuration && additive:
		return enforce.KindDuration, nil
	}
	return 0, fmt.Errorf("operator %s is not defined for %s and %s", op, a, b)
}

func (l *lowerer) call(f *filter.FunctionExpression) (string, enforce.Kind, error) {
	slot, ok := l.binding.Call(f)
	if !ok {
		return "", 0, fmt.Errorf("function %s is not bound", f.Name)
	}
	args, kinds, err := l.lowerAll(f.Children)
	if err != nil {
		return "", 0, err
	}

	params := slot.Function.Signature.Parameters
	for i := range args {
		if len(params) == 0 {
			break
		}
		dt := params[min(i, len(params)-1)]
		if dt == nil {
			continue
		}
		target := enforce.TargetOf(dt)
		if kinds[i] == target.Kind || target.Kind == enforce.KindAny {
			continue
		}
		if !castable(kinds[i], target.Kind) {
			return "", 0, fmt.Errorf("function %s argument %d: cannot convert %s to %s", f.Name, i+1, kinds[i], target)
		}
		l.targets = append(l.targets, target)
		args[i] = call("sqlCast", args[i], strconv.Itoa(len(l.targets)-1), "false")
	}

	return call("sqlCall", append([]string{slot.Var}, args...)...), enforce.TargetOf(slot.Type).Kind, nil
}

func (l *lowerer) operator(o *filter.OperatorExpression) (string, enforce.Kind, error) {
	if t := o.Type(); (t == filter.TypeCompareIn || t == filter.TypeCompareNotIn) && len(o.Children) > 1 {
		return l.inList(o)
	}

	args, kinds, err := l.lowerAll(o.Children)
	if err != nil {
		return "", 0, err
	}
	if len(args) == 0 {
		return "", 0, fmt.Errorf("operator %s has no arguments", o.Type())
	}

	switch o.Type() {
	case filter.TypeOperatorNot:
		if !boolish(kinds[0]) {
			return "", 0, fmt.Errorf("NOT expects BOOLEAN, got %s", kinds[0])
		}
		return call("sqlNot", args[0]), enforce.KindBool, nil
	case filter.TypeOperatorIsNull:
		return call("sqlIsNull", args[0]), enforce.KindBool, nil
	case filter.TypeOperatorIsNotNull:
		return call("sqlNot", call("sqlIsNull", args[0])), enforce.KindBool, nil
	case filter.TypeCompareIn:
		return call("sqlIn", args...), enforce.KindBool, nil
	case filter.TypeCompareNotIn:
		return call("sqlNot", call("sqlIn", args...)), enforce.KindBool, nil
	case filter.TypeOperatorCoalesce:
		k := enforce.KindNull
		for _, next := range kinds {
			var ok bool
			if k, ok = merge(k, next); !ok {
				return "", 0, fmt.Errorf("COALESCE arguments have incompatible types")
			}
		}
		return call("sqlCoalesce", args...), k, nil
	case filter.TypeOperatorNullIf:
		if len(args) != 2 {
			return "", 0, fmt.Errorf("NULLIF expects 2 arguments, got %d", len(args))
		}
		if !comparableKinds(kinds[0], kinds[1]) {
			return "", 0, fmt.Errorf("cannot compare %s and %s", kinds[0], kinds[1])
		}
		return call("sqlNullIf", args...), kinds[0], nil
	}
	return "", 0, fmt.Errorf("unsupported operator %s", o.Type())
}

// inList lowers IN and NOT IN in operator form, folding a constant list.
func (l *lowerer) inList(o *filter.OperatorExpression) (string, enforce.Kind, error) {
	x, _, err := l.lower(o.Children[0])
	if err != nil {
		return "", 0, err
	}
	args := []string{x}
	if list, ok, err := l.constantList(o.Children[1:]); err != nil {
		return "", 0, err
	} else if ok {
		args = append(args, list)
	} else {
		items, _, err := l.lowerAll(o.Children[1:])
		if err != nil {
			return "", 0, err
		}
		args = append(args, items...)
	}

	src := call("sqlIn", args...)
	if o.Type() == filter.TypeCompareNotIn {
		src = call("sqlNot", src)
	}
	return src, enforce.KindBool, nil
}

// caseExpr lowers CASE to nested conditionals, which evaluate only the
// selected branch.
func (l *lowerer) caseExpr(c *filter.CaseExpression) (string, enforce.Kind, error) {
	src, kind := "nil", enforce.KindNull
	if c.ElseExpr != nil {
		var err error
		if src, kind, err = l.lower(c.ElseExpr); err != nil {
			return "", 0, err
		}
	}

	for i := len(c.CaseChecks) - 1; i >= 0; i-- {
		when, wk, err := l.lower(c.CaseChecks[i].WhenExpr)
		if err != nil {
			return "", 0, err
		}
		if !boolish(wk) {
			return "", 0, fmt.Errorf("CASE condition must be BOOLEAN, got %s", wk)
		}
		then, tk, err := l.lower(c.CaseChecks[i].ThenExpr)
		if err != nil {
			return "", 0, err
		}
		var ok bool
		if kind, ok = merge(tk, kind); !ok {
			return "", 0, fmt.Errorf("CASE branches have incompatible types %s and %s", tk, kind)
		}
		src = "(" + call("sqlTrue", when) + " ? " + then + " : " + src + ")"
	}
	return src, kind, nil
}
