// Package predicate compiles DuckDB filter pushdown clauses into
// predicates evaluated over Arrow rows, for Flight servers compatible with
// the DuckDB Airport Extension.
//
// A clause is bound to a row schema and compiled once. The compiled
// predicate is then evaluated per record:
//
//   - Column references resolve by exact name against the schema
//   - Function calls resolve against a function.Registry
//   - Column values are coerced to their declared types before evaluation
//   - A record that cannot be evaluated is reported to a processing log
//     and treated as not matching
//
// # Quick Start
//
//	var b filter.Builder
//	fp := b.Build(filter.Compare(filter.TypeCompareGreaterThan,
//	    b.Column("ID", filter.TypeIDInteger), filter.Int(5)))
//
//	schema := arrow.NewSchema([]arrow.Field{
//	    {Name: "ID", Type: arrow.PrimitiveTypes.Int64},
//	    {Name: "NAME", Type: arrow.BinaryTypes.String},
//	}, nil)
//
//	p, err := predicate.Compile(fp, schema, predicate.KeyShapePlain,
//	    predicate.Config{}, function.NewBuiltinRegistry(), nil)
//	if err != nil {
//	    return err
//	}
//	p.EvaluatePlain("k1", predicate.Row{int64(10), "x"}) // true
//	p.EvaluatePlain("k2", predicate.Row{int64(3), "y"})  // false
//	p.EvaluatePlain("k3", nil)                           // false
//
// # Key Shapes
//
// Records are keyed by a plain string or by a WindowedKey. The key shape
// only selects the entry point; keys are never visible to the clause.
//
// # Errors
//
// Compile returns a *CompilationError when the clause cannot be bound or
// compiled; binding failures wrap an *UnresolvedReferenceError. Errors
// raised while evaluating a record never escape the evaluator. They are
// emitted as processinglog events carrying an *EvaluationError message,
// and the record does not match.
//
// # Concurrency
//
// A Predicate may be evaluated from many goroutines. Function instances are
// bound per Predicate; Fork returns a copy with fresh instances for another
// execution context. FilterPartitions forks once per partition.
//
// # Logging
//
// Config.Logger receives compilation details at Debug level and recovered
// panics at Error level. It defaults to slog.Default().
//
// # Memory Management
//
// Arrow uses manual reference counting. Callers MUST call Release() on:
//   - Records returned by FilterRecord
//   - FilteredReaders returned by NewFilteredReader
package predicate
