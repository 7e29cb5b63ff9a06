// Package filter models the filter clauses that DuckDB pushes down to an
// Airport Flight server.
//
// A clause arrives as JSON in ScanOptions.Filter and parses into a
// FilterPushdown: a list of bound expressions that are implicitly AND'ed
// together, plus the names of the columns they reference.
//
//	fp, err := filter.Parse(scanOpts.Filter)
//	if err != nil {
//	    return err // Malformed JSON
//	}
//
// Clauses can also be assembled in code with a Builder:
//
//	var b filter.Builder
//	fp := b.Build(filter.Compare(filter.TypeCompareGreaterThan,
//	    b.Column("id", filter.TypeIDInteger), filter.Int(5)))
//
// # SQL rendering
//
// DuckDBEncoder renders a clause back to DuckDB SQL, optionally mapping
// column names or replacing columns with SQL expressions:
//
//	enc := filter.NewDuckDBEncoder(&filter.EncoderOptions{
//	    ColumnMapping: map[string]string{"user_id": "uid"},
//	})
//	where := enc.EncodeFilters(fp)
//
// Unsupported nodes are skipped: an AND keeps its supported children and an
// OR with any unsupported child is dropped. The rendered clause is therefore
// never narrower than the original. Describe renders the whole clause,
// including unsupported nodes, for diagnostics.
//
// # Expression Types
//
//   - ComparisonExpression: =, <>, <, >, <=, >=, IS [NOT] DISTINCT FROM, IN, NOT IN
//   - ConjunctionExpression: AND/OR with multiple children
//   - ConstantExpression: literal values with type information
//   - ColumnRefExpression: references to columns by binding index
//   - FunctionExpression: function calls and operators serialized as functions
//   - CastExpression: CAST and TRY_CAST
//   - BetweenExpression: BETWEEN lower AND upper
//   - OperatorExpression: IS NULL, IS NOT NULL, NOT, COALESCE, NULLIF, IN
//   - CaseExpression: CASE WHEN ... THEN ... ELSE ... END
//   - UnsupportedExpression: aggregates, window functions, subqueries, parameters
package filter
