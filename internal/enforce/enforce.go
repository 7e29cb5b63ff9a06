package enforce

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// CoercionError reports a value that cannot be converted to its target type.
type CoercionError struct {
	// Column is the column name, empty for casts inside an expression.
	Column string
	// Index is the column index, -1 for casts inside an expression.
	Index  int
	Value  any
	Target Target
	Err    error
}

func (e *CoercionError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("cannot cast %v (%T) to %s: %v", e.Value, e.Value, e.Target, e.Err)
	}
	return fmt.Sprintf("cannot coerce column %s (index %d) value %v (%T) to %s: %v",
		e.Column, e.Index, e.Value, e.Value, e.Target, e.Err)
}

func (e *CoercionError) Unwrap() error { return e.Err }

// Enforcer coerces row values to the declared types of a schema. It holds
// no mutable state and is safe for concurrent use.
type Enforcer struct {
	schema  *arrow.Schema
	targets []Target
}

// New builds an Enforcer for schema.
func New(schema *arrow.Schema) *Enforcer {
	targets := make([]Target, schema.NumFields())
	for i, f := range schema.Fields() {
		targets[i] = TargetOf(f.Type)
	}
	return &Enforcer{schema: schema, targets: targets}
}

// Target returns the coercion target of column col.
func (e *Enforcer) Target(col int) Target { return e.targets[col] }

// Enforce coerces v, the raw value of column col.
func (e *Enforcer) Enforce(col int, v any) (any, error) {
	if col < 0 || col >= len(e.targets) {
		return nil, fmt.Errorf("column index %d out of range for schema with %d fields", col, len(e.targets))
	}
	out, err := Coerce(v, e.targets[col])
	if err != nil {
		return nil, &CoercionError{
			Column: e.schema.Field(col).Name,
			Index:  col,
			Value:  v,
			Target: e.targets[col],
			Err:    err,
		}
	}
	return out, nil
}

// Cast coerces v to t for an explicit CAST inside an expression.
func Cast(v any, t Target) (any, error) {
	out, err := Coerce(v, t)
	if err != nil {
		return nil, &CoercionError{Index: -1, Value: v, Target: t, Err: err}
	}
	return out, nil
}
