// Package codegen lowers a bound filter clause into an expr-lang program.
//
// The clause becomes expr source text in which every SQL operation is a
// call to a runtime helper (sqlCompare, sqlAnd, sqlCall, ...) implementing
// SQL NULL semantics, and every bound parameter is a variable named after
// its binder.Param.Var. The program is compiled once with an environment
// holding exactly those variables. Constant patterns and IN lists are
// prepared while lowering. Compiled programs hold no mutable state and may
// be run concurrently.
package codegen

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/file"
	"github.com/expr-lang/expr/vm"
	"github.com/paulmach/orb"

	"github.com/hugr-lab/airport-predicate/filter"
	"github.com/hugr-lab/airport-predicate/internal/binder"
	"github.com/hugr-lab/airport-predicate/internal/enforce"
)

// Program is a compiled predicate.
type Program struct {
	source  string
	program *vm.Program
}

// Source returns the generated expr-lang source.
func (p *Program) Source() string { return p.source }

// Compile lowers fp into a Program whose variables are binding's parameters.
// An empty clause compiles to a program that matches every row.
func Compile(fp *filter.FilterPushdown, binding *binder.Binding) (*Program, error) {
	l := &lowerer{fp: fp, binding: binding}

	var parts []string
	if !fp.Empty() {
		for i, f := range fp.Filters {
			src, kind, err := l.lower(f)
			if err != nil {
				return nil, err
			}
			if !boolish(kind) {
				return nil, fmt.Errorf("filter %d evaluates to %s, not BOOLEAN", i+1, kind)
			}
			parts = append(parts, src)
		}
	}

	source := "true"
	switch len(parts) {
	case 0:
	case 1:
		source = call("sqlTrue", parts[0])
	default:
		source = call("sqlTrue", call("sqlAnd", parts...))
	}

	env := make(map[string]any, len(binding.Params))
	for _, p := range binding.Params {
		env[p.Var] = sample(p)
	}

	// The node budget is off: a valid clause may lower to any size.
	opts := append([]expr.Option{expr.Env(env), expr.AsBool(), expr.MaxNodes(0)},
		helpers(l.consts, l.targets, l.matchers)...)
	program, err := expr.Compile(source, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile generated program: %w", err)
	}
	return &Program{source: source, program: program}, nil
}

// Run evaluates the program. env maps every parameter variable to its
// value. A NULL result is reported as no match.
func (p *Program) Run(env map[string]any) (bool, error) {
	out, err := expr.Run(p.program, env)
	if err != nil {
		return false, runtimeError(err)
	}
	match, _ := out.(bool)
	return match, nil
}

// runtimeError strips the source location expr adds to errors raised by
// helpers, keeping the helper's own error.
func runtimeError(err error) error {
	var fe *file.Error
	if !errors.As(err, &fe) {
		return err
	}
	if inner := errors.Unwrap(fe); inner != nil {
		return inner
	}
	return errors.New(fe.Message)
}

// sample returns a value of the parameter's runtime type for the typed
// compile environment. Function slots and untyped columns get nil.
func sample(p binder.Param) any {
	if p.IsFunction() {
		return nil
	}
	switch enforce.TargetOf(p.Type).Kind {
	case enforce.KindBool:
		return false
	case enforce.KindInt:
		return int64(0)
	case enforce.KindFloat:
		return float64(0)
	case enforce.KindString:
		return ""
	case enforce.KindBytes:
		return []byte(nil)
	case enforce.KindTime:
		return time.Time{}
	case enforce.KindDuration:
		return time.Duration(0)
	case enforce.KindGeometry:
		return orb.Point{}
	}
	return nil
}

type helperFunc = func(params ...any) (any, error)

func helpers(consts []any, targets []enforce.Target, matchers []matcher) []expr.Option {
	fns := map[string]helperFunc{
		"sqlAnd":      sqlAnd,
		"sqlOr":       sqlOr,
		"sqlNot":      sqlNot,
		"sqlIsNull":   sqlIsNull,
		"sqlCompare":  sqlCompare,
		"sqlDistinct": sqlDistinct,
		"sqlBetween":  sqlBetween,
		"sqlIn":       sqlIn,
		"sqlList":     sqlList,
		"sqlCoalesce": sqlCoalesce,
		"sqlNullIf":   sqlNullIf,
		"sqlArith":    sqlArith,
		"sqlNeg":      sqlNeg,
		"sqlConcat":   sqlConcat,
		"sqlCall":     sqlCall,
		"sqlMatch":    sqlMatch,
		"sqlMatchConst": func(params ...any) (any, error) {
			return matchers[params[0].(int)].match(params[1])
		},
		"sqlConst": func(params ...any) (any, error) {
			return consts[params[0].(int)], nil
		},
		"sqlCast": func(params ...any) (any, error) {
			v, err := enforce.Cast(params[0], targets[params[1].(int)])
			if err != nil && params[2].(bool) {
				return nil, nil
			}
			return v, err
		},
	}

	opts := make([]expr.Option, 0, len(fns)+1)
	opts = append(opts, expr.Function("sqlTrue", func(params ...any) (any, error) {
		return sqlTrue(params[0]), nil
	}, new(func(any) bool)))
	for name, fn := range fns {
		opts = append(opts, expr.Function(name, fn))
	}
	return opts
}

// Explain renders the parameter table and the generated source.
func Explain(binding *binder.Binding, p *Program) string {
	var sb strings.Builder
	for _, param := range binding.Params {
		if param.IsFunction() {
			fmt.Fprintf(&sb, "%s\tfunction %s\n", param.Var, param.Name)
			continue
		}
		fmt.Fprintf(&sb, "%s\tcolumn %d %s %s\n", param.Var, param.Column, param.Name, param.Type)
	}
	sb.WriteString(p.source)
	return sb.String()
}
