package filter

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DuckDBEncoder renders filter expressions as DuckDB SQL.
//
// Unsupported nodes render as "" unless EncoderOptions.Describe is set.
// An OR with an unsupported child is dropped entirely, an AND keeps its
// supported children; both rules keep the rendered clause no more selective
// than the original.
type DuckDBEncoder struct {
	opts           EncoderOptions
	columnBindings []string
}

// NewDuckDBEncoder creates a new DuckDB SQL encoder.
// If opts is nil, default options are used.
func NewDuckDBEncoder(opts *EncoderOptions) *DuckDBEncoder {
	e := &DuckDBEncoder{}
	if opts != nil {
		e.opts = *opts
	}
	return e
}

// Describe renders fp in a human readable form. Unsupported nodes are shown
// as markers so the text always reflects the whole clause.
func Describe(fp *FilterPushdown) string {
	if fp.Empty() {
		return "TRUE"
	}
	return NewDuckDBEncoder(&EncoderOptions{Describe: true}).EncodeFilters(fp)
}

// EncodeFilters converts all filters to a WHERE clause body without the
// WHERE keyword. Returns "" if no filters can be encoded.
func (e *DuckDBEncoder) EncodeFilters(fp *FilterPushdown) string {
	if fp.Empty() {
		return ""
	}
	e.columnBindings = fp.ColumnBindings

	var parts []string
	for _, f := range fp.Filters {
		if s := e.Encode(f); s != "" {
			parts = append(parts, s)
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "(" + strings.Join(parts, ") AND (") + ")"
}

// Encode converts a single expression to SQL.
func (e *DuckDBEncoder) Encode(expr Expression) string {
	switch ex := expr.(type) {
	case nil:
		return ""
	case *ComparisonExpression:
		return e.encodeComparison(ex)
	case *ConjunctionExpression:
		return e.encodeConjunction(ex)
	case *ConstantExpression:
		return e.formatValue(ex.Value)
	case *ColumnRefExpression:
		return e.encodeColumnRef(ex)
	case *FunctionExpression:
		return e.encodeFunction(ex)
	case *CastExpression:
		return e.encodeCast(ex)
	case *BetweenExpression:
		return e.encodeBetween(ex)
	case *OperatorExpression:
		return e.encodeOperator(ex)
	case *CaseExpression:
		return e.encodeCase(ex)
	default:
		return e.unsupported(expr)
	}
}

func (e *DuckDBEncoder) unsupported(expr Expression) string {
	if !e.opts.Describe {
		return ""
	}
	return "<" + string(expr.Class()) + ":" + string(expr.Type()) + ">"
}

// encodeAll encodes every expression or returns nil if any fails.
func (e *DuckDBEncoder) encodeAll(exprs []Expression) []string {
	out := make([]string, 0, len(exprs))
	for _, ex := range exprs {
		s := e.Encode(ex)
		if s == "" {
			return nil
		}
		out = append(out, s)
	}
	return out
}

var comparisonOperators = map[ExpressionType]string{
	TypeCompareEqual:              " = ",
	TypeCompareNotEqual:           " <> ",
	TypeCompareLessThan:           " < ",
	TypeCompareGreaterThan:        " > ",
	TypeCompareLessThanOrEqual:    " <= ",
	TypeCompareGreaterThanOrEqual: " >= ",
	TypeCompareDistinctFrom:       " IS DISTINCT FROM ",
	TypeCompareNotDistinctFrom:    " IS NOT DISTINCT FROM ",
}

func (e *DuckDBEncoder) encodeComparison(c *ComparisonExpression) string {
	switch c.Type() {
	case TypeCompareIn, TypeCompareNotIn:
		list, ok := c.Right.(*FunctionExpression)
		if !ok {
			return e.unsupported(c)
		}
		return e.encodeIn(c.Left, list.Children, c.Type() == TypeCompareNotIn)
	}

	op, ok := comparisonOperators[c.Type()]
	if !ok {
		return e.unsupported(c)
	}
	left, right := e.Encode(c.Left), e.Encode(c.Right)
	if left == "" || right == "" {
		return ""
	}
	return left + op + right
}

func (e *DuckDBEncoder) encodeIn(input Expression, list []Expression, notIn bool) string {
	left := e.Encode(input)
	values := e.encodeAll(list)
	if left == "" || len(values) == 0 {
		return ""
	}
	op := " IN ("
	if notIn {
		op = " NOT IN ("
	}
	return left + op + strings.Join(values, ", ") + ")"
}

func (e *DuckDBEncoder) encodeConjunction(c *ConjunctionExpression) string {
	var parts []string
	for _, child := range c.Children {
		if s := e.Encode(child); s != "" {
			parts = append(parts, s)
		}
	}

	or := c.Type() == TypeConjunctionOr
	if or && len(parts) != len(c.Children) {
		return ""
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	if or {
		return "(" + strings.Join(parts, " OR ") + ")"
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

func (e *DuckDBEncoder) encodeColumnRef(c *ColumnRefExpression) string {
	if c.Binding.ColumnIndex < 0 || c.Binding.ColumnIndex >= len(e.columnBindings) {
		if e.opts.Describe {
			return "#" + strconv.Itoa(c.Binding.ColumnIndex)
		}
		return ""
	}
	name := e.columnBindings[c.Binding.ColumnIndex]
	if expr, ok := e.opts.ColumnExpressions[name]; ok {
		return expr
	}
	if mapped, ok := e.opts.ColumnMapping[name]; ok {
		name = mapped
	}
	return quoteIdentifier(name)
}

func (e *DuckDBEncoder) encodeFunction(f *FunctionExpression) string {
	args := e.encodeAll(f.Children)
	if args == nil && len(f.Children) > 0 {
		return ""
	}
	if f.Native() {
		return encodeOperatorFunction(f.Name, args)
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

var patternOperators = map[string]string{
	"~~":   " LIKE ",
	"!~~":  " NOT LIKE ",
	"~~*":  " ILIKE ",
	"!~~*": " NOT ILIKE ",
	"~":    " ~ ",
	"!~":   " !~ ",
	"~*":   " ~* ",
	"!~*":  " !~* ",
}

func encodeOperatorFunction(name string, args []string) string {
	if op, ok := patternOperators[name]; ok && len(args) == 2 {
		return args[0] + op + args[1]
	}
	switch name {
	case "+", "-", "*", "/", "//", "%":
		if len(args) == 2 {
			return "(" + args[0] + " " + name + " " + args[1] + ")"
		}
		if len(args) == 1 && (name == "-" || name == "+") {
			return name + args[0]
		}
	case "||":
		if len(args) >= 2 {
			return "(" + strings.Join(args, " || ") + ")"
		}
	case FunctionListValue:
		return "[" + strings.Join(args, ", ") + "]"
	}
	return name + "(" + strings.Join(args, ", ") + ")"
}

func (e *DuckDBEncoder) encodeCast(c *CastExpression) string {
	child := e.Encode(c.Child)
	if child == "" {
		return ""
	}
	fn := "CAST("
	if c.TryCast {
		fn = "TRY_CAST("
	}
	return fn + child + " AS " + TypeName(c.ReturnType) + ")"
}

func (e *DuckDBEncoder) encodeBetween(b *BetweenExpression) string {
	input, lower, upper := e.Encode(b.Input), e.Encode(b.Lower), e.Encode(b.Upper)
	if input == "" || lower == "" || upper == "" {
		return ""
	}
	not := b.Type() == TypeCompareNotBetween

	if b.LowerInclusive && b.UpperInclusive {
		if not {
			return input + " NOT BETWEEN " + lower + " AND " + upper
		}
		return input + " BETWEEN " + lower + " AND " + upper
	}

	lo, hi := " > ", " < "
	if b.LowerInclusive {
		lo = " >= "
	}
	if b.UpperInclusive {
		hi = " <= "
	}
	out := "(" + input + lo + lower + " AND " + input + hi + upper + ")"
	if not {
		return "NOT " + out
	}
	return out
}

func (e *DuckDBEncoder) encodeOperator(o *OperatorExpression) string {
	if len(o.Children) == 0 {
		return e.unsupported(o)
	}

	switch o.Type() {
	case TypeCompareIn, TypeCompareNotIn:
		if len(o.Children) < 2 {
			return ""
		}
		return e.encodeIn(o.Children[0], o.Children[1:], o.Type() == TypeCompareNotIn)
	}

	args := e.encodeAll(o.Children)
	if args == nil {
		return ""
	}
	switch o.Type() {
	case TypeOperatorIsNull:
		return args[0] + " IS NULL"
	case TypeOperatorIsNotNull:
		return args[0] + " IS NOT NULL"
	case TypeOperatorNot:
		return "NOT (" + args[0] + ")"
	case TypeOperatorCoalesce:
		return "COALESCE(" + strings.Join(args, ", ") + ")"
	case TypeOperatorNullIf:
		if len(args) == 2 {
			return "NULLIF(" + args[0] + ", " + args[1] + ")"
		}
	}
	return e.unsupported(o)
}

func (e *DuckDBEncoder) encodeCase(c *CaseExpression) string {
	var sb strings.Builder
	sb.WriteString("CASE")
	for _, check := range c.CaseChecks {
		when, then := e.Encode(check.WhenExpr), e.Encode(check.ThenExpr)
		if when == "" || then == "" {
			return ""
		}
		sb.WriteString(" WHEN " + when + " THEN " + then)
	}
	if c.ElseExpr != nil {
		els := e.Encode(c.ElseExpr)
		if els == "" {
			return ""
		}
		sb.WriteString(" ELSE " + els)
	}
	sb.WriteString(" END")
	return sb.String()
}

// formatValue formats a Value as a SQL literal.
func (e *DuckDBEncoder) formatValue(v Value) string {
	if v.IsNull {
		return "NULL"
	}

	switch data := v.Data.(type) {
	case bool:
		if data {
			return "TRUE"
		}
		return "FALSE"
	case int64:
		return formatIntValue(data, v.Type)
	case uint64:
		return strconv.FormatUint(data, 10)
	case float64:
		if v.Type.ID == TypeIDDecimal {
			return strconv.FormatFloat(data, 'f', -1, 64)
		}
		return strconv.FormatFloat(data, 'g', -1, 64)
	case string:
		if v.Type.ID == TypeIDUUID {
			return quoteLiteral(data) + "::UUID"
		}
		return quoteLiteral(data)
	case []byte:
		var sb strings.Builder
		for _, b := range data {
			sb.WriteString(`\x`)
			sb.WriteString(hex.EncodeToString([]byte{b}))
		}
		return "'" + sb.String() + "'::BLOB"
	case Interval:
		return fmt.Sprintf("INTERVAL '%d months %d days %d microseconds'", data.Months, data.Days, data.Micros)
	case []Value:
		items := make([]string, 0, len(data))
		for _, item := range data {
			s := e.formatValue(item)
			if s == "" {
				return ""
			}
			items = append(items, s)
		}
		return "[" + strings.Join(items, ", ") + "]"
	}
	return ""
}

// formatIntValue formats integers and the temporal values DuckDB encodes as integers.
func formatIntValue(v int64, lt LogicalType) string {
	switch lt.ID {
	case TypeIDDate:
		return "DATE '" + time.Unix(v*86400, 0).UTC().Format("2006-01-02") + "'"
	case TypeIDTime, TypeIDTimeTZ:
		d := time.Duration(v) * time.Microsecond
		return "TIME '" + time.Time{}.Add(d).Format("15:04:05.999999") + "'"
	case TypeIDTimestamp, TypeIDTimestampTZ, TypeIDTimestampMs, TypeIDTimestampNs, TypeIDTimestampSec:
		return "TIMESTAMP '" + TimestampValue(v, lt.ID).Format("2006-01-02 15:04:05.999999999") + "'"
	}
	return strconv.FormatInt(v, 10)
}

// TimestampValue converts DuckDB's integer timestamp encoding to a UTC time.
func TimestampValue(v int64, id LogicalTypeID) time.Time {
	switch id {
	case TypeIDTimestampSec:
		return time.Unix(v, 0).UTC()
	case TypeIDTimestampMs:
		return time.UnixMilli(v).UTC()
	case TypeIDTimestampNs:
		return time.Unix(0, v).UTC()
	}
	return time.UnixMicro(v).UTC()
}

// TypeName formats a LogicalType as a DuckDB SQL type name.
func TypeName(lt LogicalType) string {
	switch lt.ID {
	case TypeIDDecimal:
		if lt.Decimal != nil {
			return fmt.Sprintf("DECIMAL(%d, %d)", lt.Decimal.Width, lt.Decimal.Scale)
		}
		return "DECIMAL"
	case TypeIDTimeTZ:
		return "TIME WITH TIME ZONE"
	case TypeIDTimestampTZ:
		return "TIMESTAMP WITH TIME ZONE"
	case TypeIDTimestampSec:
		return "TIMESTAMP_S"
	case "":
		return "ANY"
	}
	return string(lt.ID)
}
