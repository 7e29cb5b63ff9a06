package filter

import "strconv"

// ExpressionClass identifies the category of expression.
type ExpressionClass string

const (
	ClassBoundAggregate   ExpressionClass = "BOUND_AGGREGATE"
	ClassBoundCase        ExpressionClass = "BOUND_CASE"
	ClassBoundCast        ExpressionClass = "BOUND_CAST"
	ClassBoundColumnRef   ExpressionClass = "BOUND_COLUMN_REF"
	ClassBoundComparison  ExpressionClass = "BOUND_COMPARISON"
	ClassBoundConjunction ExpressionClass = "BOUND_CONJUNCTION"
	ClassBoundConstant    ExpressionClass = "BOUND_CONSTANT"
	ClassBoundFunction    ExpressionClass = "BOUND_FUNCTION"
	ClassBoundOperator    ExpressionClass = "BOUND_OPERATOR"
	ClassBoundParameter   ExpressionClass = "BOUND_PARAMETER"
	ClassBoundRef         ExpressionClass = "BOUND_REF"
	ClassBoundSubquery    ExpressionClass = "BOUND_SUBQUERY"
	ClassBoundWindow      ExpressionClass = "BOUND_WINDOW"
	ClassBoundBetween     ExpressionClass = "BOUND_BETWEEN"
)

// ExpressionType identifies the specific operation type.
type ExpressionType string

const (
	// Comparison operators
	TypeCompareEqual              ExpressionType = "COMPARE_EQUAL"
	TypeCompareNotEqual           ExpressionType = "COMPARE_NOTEQUAL"
	TypeCompareLessThan           ExpressionType = "COMPARE_LESSTHAN"
	TypeCompareGreaterThan        ExpressionType = "COMPARE_GREATERTHAN"
	TypeCompareLessThanOrEqual    ExpressionType = "COMPARE_LESSTHANOREQUALTO"
	TypeCompareGreaterThanOrEqual ExpressionType = "COMPARE_GREATERTHANOREQUALTO"
	TypeCompareIn                 ExpressionType = "COMPARE_IN"
	TypeCompareNotIn              ExpressionType = "COMPARE_NOT_IN"
	TypeCompareDistinctFrom       ExpressionType = "COMPARE_DISTINCT_FROM"
	TypeCompareNotDistinctFrom    ExpressionType = "COMPARE_NOT_DISTINCT_FROM"
	TypeCompareBetween            ExpressionType = "COMPARE_BETWEEN"
	TypeCompareNotBetween         ExpressionType = "COMPARE_NOT_BETWEEN"

	// Conjunction operators
	TypeConjunctionAnd ExpressionType = "CONJUNCTION_AND"
	TypeConjunctionOr  ExpressionType = "CONJUNCTION_OR"

	// Operators
	TypeOperatorNot       ExpressionType = "OPERATOR_NOT"
	TypeOperatorIsNull    ExpressionType = "OPERATOR_IS_NULL"
	TypeOperatorIsNotNull ExpressionType = "OPERATOR_IS_NOT_NULL"
	TypeOperatorNullIf    ExpressionType = "OPERATOR_NULLIF"
	TypeOperatorCoalesce  ExpressionType = "OPERATOR_COALESCE"

	TypeValueConstant  ExpressionType = "VALUE_CONSTANT"
	TypeBoundFunction  ExpressionType = "BOUND_FUNCTION"
	TypeCaseExpr       ExpressionType = "CASE_EXPR"
	TypeCast           ExpressionType = "CAST"
	TypeBoundColumnRef ExpressionType = "BOUND_COLUMN_REF"
)

// Expression is the interface implemented by all filter expression types.
// Use type assertions or type switches to access specific expression data.
type Expression interface {
	// Class returns the expression class (e.g., BOUND_COMPARISON, BOUND_CONJUNCTION).
	Class() ExpressionClass

	// Type returns the specific expression type (e.g., COMPARE_EQUAL, CONJUNCTION_AND).
	Type() ExpressionType

	// Alias returns the optional alias for the expression.
	Alias() string

	expressionMarker()
}

// BaseExpression contains common fields for all expression types.
type BaseExpression struct {
	ExprClass ExpressionClass `json:"expression_class"`
	ExprType  ExpressionType  `json:"type"`
	ExprAlias string          `json:"alias"`
}

func (b *BaseExpression) Class() ExpressionClass { return b.ExprClass }
func (b *BaseExpression) Type() ExpressionType   { return b.ExprType }
func (b *BaseExpression) Alias() string          { return b.ExprAlias }
func (b *BaseExpression) expressionMarker()      {}

// ColumnBinding identifies a column by table and column index.
type ColumnBinding struct {
	TableIndex  int `json:"table_index"`
	ColumnIndex int `json:"column_index"`
}

// FilterPushdown is a parsed filter clause.
type FilterPushdown struct {
	// Filters contains the parsed filter expressions.
	// Multiple filters are implicitly AND'ed together.
	Filters []Expression

	// ColumnBindings maps column binding indices to column names.
	ColumnBindings []string
}

// ColumnName resolves a column name from a ColumnRefExpression.
// Returns an error if the binding index is out of range.
func (fp *FilterPushdown) ColumnName(ref *ColumnRefExpression) (string, error) {
	if ref.Binding.ColumnIndex < 0 || ref.Binding.ColumnIndex >= len(fp.ColumnBindings) {
		return "", &ColumnBindingError{Index: ref.Binding.ColumnIndex, Max: len(fp.ColumnBindings)}
	}
	return fp.ColumnBindings[ref.Binding.ColumnIndex], nil
}

// Empty reports whether the clause has no filters and therefore accepts every row.
func (fp *FilterPushdown) Empty() bool {
	return fp == nil || len(fp.Filters) == 0
}

// ColumnBindingError indicates an invalid column binding index.
type ColumnBindingError struct {
	Index int
	Max   int
}

func (e *ColumnBindingError) Error() string {
	return "invalid column binding index: " + strconv.Itoa(e.Index) + " (max: " + strconv.Itoa(e.Max-1) + ")"
}

// ComparisonExpression represents binary comparisons (=, <>, <, >, <=, >=, IN, NOT IN).
type ComparisonExpression struct {
	BaseExpression
	Left  Expression
	Right Expression
}

// ConjunctionExpression represents AND/OR with multiple children.
type ConjunctionExpression struct {
	BaseExpression
	Children []Expression
}

// ConstantExpression represents a literal value.
type ConstantExpression struct {
	BaseExpression
	Value Value
}

// ColumnRefExpression represents a reference to a table column.
type ColumnRefExpression struct {
	BaseExpression
	Binding    ColumnBinding
	ReturnType LogicalType
	Depth      int
}

// FunctionExpression represents a function call. Operators that DuckDB
// serializes as functions (arithmetic, LIKE, regex, concatenation) carry
// IsOperator or one of the names accepted by IsOperatorFunction.
type FunctionExpression struct {
	BaseExpression
	Name        string
	Children    []Expression
	ReturnType  LogicalType
	Arguments   []LogicalType
	CatalogName string
	SchemaName  string
	IsOperator  bool
}

// Native reports whether the call is lowered directly rather than resolved
// against a function registry.
func (f *FunctionExpression) Native() bool {
	return f.IsOperator || IsOperatorFunction(f.Name) || f.Name == FunctionListValue
}

// CastExpression represents a type cast.
type CastExpression struct {
	BaseExpression
	Child      Expression
	ReturnType LogicalType
	TryCast    bool
}

// BetweenExpression represents BETWEEN lower AND upper.
type BetweenExpression struct {
	BaseExpression
	Input          Expression
	Lower          Expression
	Upper          Expression
	LowerInclusive bool
	UpperInclusive bool
}

// OperatorExpression represents unary or n-ary operators (IS NULL, IS NOT NULL, NOT, etc.).
type OperatorExpression struct {
	BaseExpression
	Children   []Expression
	ReturnType LogicalType
}

// CaseExpression represents CASE WHEN ... THEN ... ELSE ... END.
type CaseExpression struct {
	BaseExpression
	CaseChecks []CaseCheck
	ElseExpr   Expression
	ReturnType LogicalType
}

// CaseCheck represents a single WHEN...THEN pair in a CASE expression.
type CaseCheck struct {
	WhenExpr Expression
	ThenExpr Expression
}

// UnsupportedExpression keeps the class of an expression that can be parsed
// but not evaluated per row (aggregates, window functions, subqueries,
// bound parameters).
type UnsupportedExpression struct {
	BaseExpression
}

// Children returns the direct sub-expressions of expr in evaluation order.
func Children(expr Expression) []Expression {
	switch ex := expr.(type) {
	case *ComparisonExpression:
		return []Expression{ex.Left, ex.Right}
	case *ConjunctionExpression:
		return ex.Children
	case *FunctionExpression:
		return ex.Children
	case *CastExpression:
		return []Expression{ex.Child}
	case *BetweenExpression:
		return []Expression{ex.Input, ex.Lower, ex.Upper}
	case *OperatorExpression:
		return ex.Children
	case *CaseExpression:
		out := make([]Expression, 0, 2*len(ex.CaseChecks)+1)
		for _, check := range ex.CaseChecks {
			out = append(out, check.WhenExpr, check.ThenExpr)
		}
		if ex.ElseExpr != nil {
			out = append(out, ex.ElseExpr)
		}
		return out
	}
	return nil
}

// Walk visits expr and its descendants in pre-order. Returning false from
// fn skips the children of the current node.
func Walk(expr Expression, fn func(Expression) bool) {
	if expr == nil || !fn(expr) {
		return
	}
	for _, child := range Children(expr) {
		Walk(child, fn)
	}
}
