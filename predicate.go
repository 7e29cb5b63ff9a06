package predicate

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/airport-predicate/filter"
	"github.com/hugr-lab/airport-predicate/function"
	"github.com/hugr-lab/airport-predicate/internal/binder"
	"github.com/hugr-lab/airport-predicate/internal/codegen"
	"github.com/hugr-lab/airport-predicate/internal/enforce"
	"github.com/hugr-lab/airport-predicate/processinglog"
)

// KeyShape selects the evaluation entry point for a predicate.
type KeyShape int

const (
	// KeyShapePlain predicates are evaluated with EvaluatePlain.
	KeyShapePlain KeyShape = iota
	// KeyShapeWindowed predicates are evaluated with EvaluateWindowed.
	KeyShapeWindowed
)

func (s KeyShape) String() string {
	switch s {
	case KeyShapePlain:
		return "plain"
	case KeyShapeWindowed:
		return "windowed"
	}
	return fmt.Sprintf("KeyShape(%d)", int(s))
}

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowedKey is a record key scoped to a window.
type WindowedKey struct {
	Key    string
	Window Window
}

// Row holds column values aligned to the schema. A nil Row is an absent
// record.
type Row []any

// FunctionSlot is the Column of a Parameter supplied by a function instance.
const FunctionSlot = binder.FunctionSlot

// Parameter describes one bound free variable of a compiled predicate.
type Parameter struct {
	Name string
	// Type is the declared column type or the function's return type.
	Type arrow.DataType
	// Column is the schema index, or FunctionSlot.
	Column int
}

// Predicate is a filter clause compiled against a schema.
//
// A Predicate is safe for concurrent use. Function instances are bound per
// Predicate; use Fork to give another execution context its own instances.
type Predicate struct {
	fp         *filter.FilterPushdown
	schema     *arrow.Schema
	shape      KeyShape
	expression string

	binding  *binder.Binding
	program  *codegen.Program
	enforcer *enforce.Enforcer
	registry *function.Registry
	// instances is indexed like binding.Params; nil for column parameters.
	instances []function.Instance

	sink        processinglog.Sink
	logger      *slog.Logger
	includeRows bool
	metrics     *metrics
}

// Compile binds fp to schema and compiles it once.
//
// A nil fp or an empty clause matches every row. reg may be nil when the
// clause calls only native operators. A nil sink logs processing events
// through the configured logger at Warn level.
//
// Failures to bind or compile return a *CompilationError.
func Compile(fp *filter.FilterPushdown, schema *arrow.Schema, shape KeyShape, config Config, reg *function.Registry, sink processinglog.Sink) (*Predicate, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if schema == nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, ErrNilSchema)
	}
	if shape != KeyShapePlain && shape != KeyShapeWindowed {
		return nil, fmt.Errorf("%w: unknown key shape %v", ErrInvalidConfig, shape)
	}

	logger := config.logger()
	if fp == nil {
		fp = &filter.FilterPushdown{}
	}
	expression := filter.Describe(fp)

	binding, err := binder.Bind(fp, schema, reg)
	if err != nil {
		return nil, &CompilationError{Expression: expression, Schema: schema, Err: err}
	}
	program, err := codegen.Compile(fp, binding)
	if err != nil {
		return nil, &CompilationError{Expression: expression, Schema: schema, Err: err}
	}
	m, err := newMetrics(config.Meter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if sink == nil {
		sink = processinglog.NewSlogSink(logger, slog.LevelWarn)
	}

	p := &Predicate{
		fp:          fp,
		schema:      schema,
		shape:       shape,
		expression:  expression,
		binding:     binding,
		program:     program,
		enforcer:    enforce.New(schema),
		registry:    reg,
		sink:        sink,
		logger:      logger,
		includeRows: !config.OmitRows,
		metrics:     m,
	}
	p.instances = p.newInstances()

	logger.Debug("Predicate compiled",
		"expression", expression,
		"key_shape", shape.String(),
		"parameters", len(binding.Params),
		"program", codegen.Explain(binding, program),
	)
	return p, nil
}

func (p *Predicate) newInstances() []function.Instance {
	instances := make([]function.Instance, len(p.binding.Params))
	for i, param := range p.binding.Params {
		if param.IsFunction() {
			instances[i] = p.registry.Instance(param.Function)
		}
	}
	return instances
}

// Fork returns a predicate sharing the compiled program with fresh function
// instances. Stateless functions keep their shared instance.
func (p *Predicate) Fork() *Predicate {
	q := *p
	q.instances = p.newInstances()
	return &q
}

// EvaluatePlain reports whether row matches. The key is not visible to the
// clause. Absent rows and faulting rows never match.
func (p *Predicate) EvaluatePlain(key string, row Row) bool {
	return p.evaluate(row)
}

// EvaluateWindowed is EvaluatePlain for windowed keys.
func (p *Predicate) EvaluateWindowed(key WindowedKey, row Row) bool {
	return p.evaluate(row)
}

// Filter returns the compiled clause.
func (p *Predicate) Filter() *filter.FilterPushdown { return p.fp }

// Schema returns the row schema the clause is bound to.
func (p *Predicate) Schema() *arrow.Schema { return p.schema }

// Expression returns the clause rendered as SQL.
func (p *Predicate) Expression() string { return p.expression }

// KeyShape returns the key shape the predicate was compiled for.
func (p *Predicate) KeyShape() KeyShape { return p.shape }

// Parameters returns the bound free variables in program order.
func (p *Predicate) Parameters() []Parameter {
	params := make([]Parameter, len(p.binding.Params))
	for i, b := range p.binding.Params {
		params[i] = Parameter{Name: b.Name, Type: b.Type, Column: b.Column}
	}
	return params
}

// Explain renders the parameter table and the generated program.
func (p *Predicate) Explain() string {
	return codegen.Explain(p.binding, p.program)
}
