// Package binder resolves the free variables of a filter clause against a
// row schema and a function registry.
package binder

import (
	"fmt"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/airport-predicate/filter"
	"github.com/hugr-lab/airport-predicate/function"
)

// FunctionSlot is the Column of a parameter supplied by a function
// instance rather than a row value.
const FunctionSlot = -1

// Param is one bound free variable.
type Param struct {
	// Name is the column or function name as written in the clause.
	Name string
	// Var is the variable name inside the compiled program.
	Var string
	// Type is the declared column type, or the function's return type
	// (nil when the function returns any type).
	Type arrow.DataType
	// Column is the schema index, or FunctionSlot.
	Column int
	// Function is set for function slots.
	Function *function.Function
}

// IsFunction reports whether p is bound to a function instance slot.
func (p Param) IsFunction() bool { return p.Column == FunctionSlot }

// UnresolvedReferenceError reports a name that matches neither a schema
// column nor a registered function.
type UnresolvedReferenceError struct {
	Name string
	// Kind is "column" or "function".
	Kind string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved %s reference: %s", e.Kind, e.Name)
}

// Binding is the ordered parameter table of one clause.
type Binding struct {
	Params  []Param
	columns map[string]int
	calls   map[*filter.FunctionExpression]int
}

// Column returns the parameter bound to the named column.
func (b *Binding) Column(name string) (Param, bool) {
	i, ok := b.columns[name]
	if !ok {
		return Param{}, false
	}
	return b.Params[i], true
}

// Call returns the function slot bound to the call site f.
func (b *Binding) Call(f *filter.FunctionExpression) (Param, bool) {
	i, ok := b.calls[f]
	if !ok {
		return Param{}, false
	}
	return b.Params[i], true
}

// Bind resolves every column reference and non-native function call in fp.
//
// Parameters are ordered by first occurrence in a pre-order walk of the
// filters, so the order depends only on the clause and never on the
// position of columns in the schema. Each distinct column yields one
// parameter; each function call site yields its own slot.
func Bind(fp *filter.FilterPushdown, schema *arrow.Schema, reg *function.Registry) (*Binding, error) {
	if err := checkUniqueNames(schema); err != nil {
		return nil, err
	}

	b := &Binding{
		columns: make(map[string]int),
		calls:   make(map[*filter.FunctionExpression]int),
	}
	if fp.Empty() {
		return b, nil
	}

	var bindErr error
	visit := func(expr filter.Expression) bool {
		if bindErr != nil {
			return false
		}
		switch ex := expr.(type) {
		case *filter.ColumnRefExpression:
			bindErr = b.bindColumn(fp, schema, ex)
		case *filter.FunctionExpression:
			if !ex.Native() {
				bindErr = b.bindCall(reg, ex)
			}
		}
		return bindErr == nil
	}
	for _, f := range fp.Filters {
		filter.Walk(f, visit)
		if bindErr != nil {
			return nil, bindErr
		}
	}
	return b, nil
}

func (b *Binding) bindColumn(fp *filter.FilterPushdown, schema *arrow.Schema, ref *filter.ColumnRefExpression) error {
	name, err := fp.ColumnName(ref)
	if err != nil {
		return err
	}
	if _, ok := b.columns[name]; ok {
		return nil
	}
	indices := schema.FieldIndices(name)
	if len(indices) == 0 {
		return &UnresolvedReferenceError{Name: name, Kind: "column"}
	}

	i := len(b.Params)
	b.columns[name] = i
	b.Params = append(b.Params, Param{
		Name:   name,
		Var:    "p" + strconv.Itoa(i),
		Type:   schema.Field(indices[0]).Type,
		Column: indices[0],
	})
	return nil
}

func (b *Binding) bindCall(reg *function.Registry, call *filter.FunctionExpression) error {
	fn, ok := reg.Lookup(call.Name)
	if !ok {
		return &UnresolvedReferenceError{Name: call.Name, Kind: "function"}
	}
	if err := fn.CheckArity(len(call.Children)); err != nil {
		return err
	}

	i := len(b.Params)
	b.calls[call] = i
	b.Params = append(b.Params, Param{
		Name:     fn.Name,
		Var:      "f" + strconv.Itoa(i),
		Type:     fn.Signature.ReturnType,
		Column:   FunctionSlot,
		Function: fn,
	})
	return nil
}

func checkUniqueNames(schema *arrow.Schema) error {
	if schema == nil {
		return fmt.Errorf("schema is required")
	}
	seen := make(map[string]struct{}, schema.NumFields())
	for _, f := range schema.Fields() {
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("duplicate column name in schema: %s", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}
