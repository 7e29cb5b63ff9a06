package filter

import "time"

// Builder assembles a FilterPushdown in code, assigning column binding
// indices in the order columns are first referenced.
//
//	var b filter.Builder
//	fp := b.Build(filter.Compare(filter.TypeCompareGreaterThan,
//	    b.Column("id", filter.TypeIDInteger), filter.Int(5)))
type Builder struct {
	columns []string
}

// Column returns a reference to the named column.
func (b *Builder) Column(name string, id LogicalTypeID) *ColumnRefExpression {
	idx := -1
	for i, c := range b.columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = len(b.columns)
		b.columns = append(b.columns, name)
	}
	return &ColumnRefExpression{
		BaseExpression: base(ClassBoundColumnRef, TypeBoundColumnRef),
		Binding:        ColumnBinding{ColumnIndex: idx},
		ReturnType:     LogicalType{ID: id},
	}
}

// Build returns a FilterPushdown over the referenced columns.
func (b *Builder) Build(filters ...Expression) *FilterPushdown {
	return &FilterPushdown{
		Filters:        filters,
		ColumnBindings: append([]string(nil), b.columns...),
	}
}

func base(class ExpressionClass, typ ExpressionType) BaseExpression {
	return BaseExpression{ExprClass: class, ExprType: typ}
}

// Constant wraps data of the given type. data follows the Value encoding.
func Constant(id LogicalTypeID, data any) *ConstantExpression {
	return &ConstantExpression{
		BaseExpression: base(ClassBoundConstant, TypeValueConstant),
		Value:          Value{Type: LogicalType{ID: id}, IsNull: data == nil, Data: data},
	}
}

func Int(v int64) *ConstantExpression     { return Constant(TypeIDBigInt, v) }
func Float(v float64) *ConstantExpression { return Constant(TypeIDDouble, v) }
func String(v string) *ConstantExpression { return Constant(TypeIDVarchar, v) }
func Bool(v bool) *ConstantExpression     { return Constant(TypeIDBoolean, v) }

// Null returns a typed NULL constant.
func Null(id LogicalTypeID) *ConstantExpression { return Constant(id, nil) }

// Date returns a DATE constant for the day containing t (UTC).
func Date(t time.Time) *ConstantExpression {
	return Constant(TypeIDDate, t.UTC().Truncate(24*time.Hour).Unix()/86400)
}

// Timestamp returns a microsecond TIMESTAMP constant.
func Timestamp(t time.Time) *ConstantExpression {
	return Constant(TypeIDTimestamp, t.UnixMicro())
}

// Compare builds a binary comparison of the given type.
func Compare(typ ExpressionType, left, right Expression) *ComparisonExpression {
	return &ComparisonExpression{BaseExpression: base(ClassBoundComparison, typ), Left: left, Right: right}
}

func And(children ...Expression) *ConjunctionExpression {
	return &ConjunctionExpression{BaseExpression: base(ClassBoundConjunction, TypeConjunctionAnd), Children: children}
}

func Or(children ...Expression) *ConjunctionExpression {
	return &ConjunctionExpression{BaseExpression: base(ClassBoundConjunction, TypeConjunctionOr), Children: children}
}

// Operator builds an OPERATOR_* expression such as IS NULL or COALESCE.
func Operator(typ ExpressionType, children ...Expression) *OperatorExpression {
	return &OperatorExpression{BaseExpression: base(ClassBoundOperator, typ), Children: children}
}

func Not(child Expression) *OperatorExpression { return Operator(TypeOperatorNot, child) }

// In builds "input IN (values...)" in DuckDB's operator form.
func In(input Expression, values ...Expression) *OperatorExpression {
	return Operator(TypeCompareIn, append([]Expression{input}, values...)...)
}

// Between builds an inclusive BETWEEN.
func Between(input, lower, upper Expression) *BetweenExpression {
	return &BetweenExpression{
		BaseExpression: base(ClassBoundBetween, TypeCompareBetween),
		Input:          input,
		Lower:          lower,
		Upper:          upper,
		LowerInclusive: true,
		UpperInclusive: true,
	}
}

// Call builds a call to a named scalar function.
func Call(name string, args ...Expression) *FunctionExpression {
	return &FunctionExpression{BaseExpression: base(ClassBoundFunction, TypeBoundFunction), Name: name, Children: args}
}

// Op builds an operator serialized as a function, for example "+" or "~~".
func Op(name string, args ...Expression) *FunctionExpression {
	f := Call(name, args...)
	f.IsOperator = true
	return f
}

// Cast builds CAST(child AS id), or TRY_CAST when try is set.
func Cast(child Expression, id LogicalTypeID, try bool) *CastExpression {
	return &CastExpression{
		BaseExpression: base(ClassBoundCast, TypeCast),
		Child:          child,
		ReturnType:     LogicalType{ID: id},
		TryCast:        try,
	}
}

// Case builds a searched CASE expression. els may be nil.
func Case(els Expression, checks ...CaseCheck) *CaseExpression {
	return &CaseExpression{BaseExpression: base(ClassBoundCase, TypeCaseExpr), CaseChecks: checks, ElseExpr: els}
}
