package predicate

import (
	"fmt"
	"log/slog"

	"github.com/hugr-lab/airport-predicate/internal/recovery"
	"github.com/hugr-lab/airport-predicate/processinglog"
)

// outcome is the result of one guarded evaluation: a match decision, or
// the fault that prevented one.
type outcome struct {
	Match bool
	Fault *EvaluationError
}

func (p *Predicate) evaluate(row Row) bool {
	if row == nil {
		p.metrics.record(outcome{})
		return false
	}
	out := p.run(row)
	p.metrics.record(out)
	if out.Fault != nil {
		p.report(row, out.Fault)
		return false
	}
	return out.Match
}

// run evaluates row, converting returned errors and recovered panics into
// a fault.
func (p *Predicate) run(row Row) (out outcome) {
	err := recovery.CallLevel(p.logger, slog.LevelDebug, "evaluate predicate", func() error {
		env, err := p.bind(row)
		if err != nil {
			return err
		}
		out.Match, err = p.program.Run(env)
		return err
	})
	if err != nil {
		return outcome{Fault: &EvaluationError{Expression: p.expression, Err: err}}
	}
	return out
}

// bind builds the program environment: enforced column values and the
// function instances of this predicate.
func (p *Predicate) bind(row Row) (map[string]any, error) {
	if len(row) != p.schema.NumFields() {
		return nil, fmt.Errorf("row has %d values, schema has %d columns", len(row), p.schema.NumFields())
	}
	env := make(map[string]any, len(p.binding.Params))
	for i, param := range p.binding.Params {
		if param.IsFunction() {
			env[param.Var] = p.instances[i]
			continue
		}
		v, err := p.enforcer.Enforce(param.Column, row[param.Column])
		if err != nil {
			return nil, err
		}
		env[param.Var] = v
	}
	return env, nil
}

// report emits the processing log event for a fault. A failing or
// panicking sink is logged and otherwise ignored.
func (p *Predicate) report(row Row, fault *EvaluationError) {
	ev := processinglog.RecordProcessingError(p.expression, fault.Err, row, p.includeRows)
	err := recovery.Call(p.logger, "emit processing log event", func() error {
		return p.sink.Emit(ev)
	})
	if err != nil {
		p.logger.Warn("Failed to emit processing log event",
			"expression", p.expression,
			"event_id", ev.ID.String(),
			"error", err,
		)
	}
}
