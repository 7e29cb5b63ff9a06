package predicate

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/airport-predicate/internal/binder"
	"github.com/hugr-lab/airport-predicate/internal/enforce"
)

// UnresolvedReferenceError reports a clause name that matches neither a
// schema column nor a registered function.
type UnresolvedReferenceError = binder.UnresolvedReferenceError

// TypeCoercionError reports a column value that cannot be converted to the
// column's declared type. It always arrives wrapped in an EvaluationError.
type TypeCoercionError = enforce.CoercionError

// CompilationError reports a clause that cannot be compiled against a
// schema. No predicate is returned alongside it.
type CompilationError struct {
	Expression string
	Schema     *arrow.Schema
	Err        error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("cannot compile predicate %s for schema %s: %v",
		e.Expression, schemaString(e.Schema), e.Err)
}

func (e *CompilationError) Unwrap() error { return e.Err }

// EvaluationError is a fault raised while evaluating one record.
type EvaluationError struct {
	Expression string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("error evaluating predicate %s: %v", e.Expression, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// Is reports ErrEvaluation as matching every EvaluationError.
func (e *EvaluationError) Is(target error) bool { return target == ErrEvaluation }

// schemaString renders a schema on one line as [name:type, ...].
func schemaString(s *arrow.Schema) string {
	if s == nil {
		return "<nil>"
	}
	parts := make([]string, s.NumFields())
	for i, f := range s.Fields() {
		parts[i] = f.Name + ":" + f.Type.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
