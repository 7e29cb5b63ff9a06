package filter

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// Parse parses filter pushdown JSON as sent by the DuckDB Airport extension.
//
// Error conditions:
//   - Invalid JSON syntax
//   - Malformed operands or values
//
// Expression classes that cannot be evaluated per row are kept as
// UnsupportedExpression; rejecting them is left to the compiler.
func Parse(data []byte) (*FilterPushdown, error) {
	if len(data) == 0 {
		return &FilterPushdown{}, nil
	}

	var raw struct {
		Filters        []json.RawMessage `json:"filters"`
		ColumnBindings []string          `json:"column_binding_names_by_index"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("filter: invalid JSON: %w", err)
	}

	fp := &FilterPushdown{
		ColumnBindings: raw.ColumnBindings,
		Filters:        make([]Expression, 0, len(raw.Filters)),
	}
	for i, rawExpr := range raw.Filters {
		expr, err := parseExpression(rawExpr)
		if err != nil {
			return nil, fmt.Errorf("filter: error parsing filter %d: %w", i, err)
		}
		fp.Filters = append(fp.Filters, expr)
	}
	return fp, nil
}

// rawNode carries the union of the fields used by every expression class.
type rawNode struct {
	ExpressionClass string            `json:"expression_class"`
	Type            string            `json:"type"`
	Alias           string            `json:"alias"`
	ReturnType      json.RawMessage   `json:"return_type"`
	Left            json.RawMessage   `json:"left"`
	Right           json.RawMessage   `json:"right"`
	Children        []json.RawMessage `json:"children"`
	Child           json.RawMessage   `json:"child"`
	Value           json.RawMessage   `json:"value"`
	Binding         ColumnBinding     `json:"binding"`
	Depth           int               `json:"depth"`
	Name            string            `json:"name"`
	Arguments       []json.RawMessage `json:"arguments"`
	CatalogName     string            `json:"catalog_name"`
	SchemaName      string            `json:"schema_name"`
	IsOperator      bool              `json:"is_operator"`
	TryCast         bool              `json:"try_cast"`
	Input           json.RawMessage   `json:"input"`
	Lower           json.RawMessage   `json:"lower"`
	Upper           json.RawMessage   `json:"upper"`
	LowerInclusive  bool              `json:"lower_inclusive"`
	UpperInclusive  bool              `json:"upper_inclusive"`
	CaseChecks      []struct {
		WhenExpr json.RawMessage `json:"when_expr"`
		ThenExpr json.RawMessage `json:"then_expr"`
	} `json:"case_checks"`
	ElseExpr json.RawMessage `json:"else_expr"`
}

func (r *rawNode) base() BaseExpression {
	return BaseExpression{
		ExprClass: ExpressionClass(r.ExpressionClass),
		ExprType:  ExpressionType(r.Type),
		ExprAlias: r.Alias,
	}
}

func parseExpression(data json.RawMessage) (Expression, error) {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid expression: %w", err)
	}

	switch ExpressionClass(raw.ExpressionClass) {
	case ClassBoundComparison:
		left, err := parseExpression(raw.Left)
		if err != nil {
			return nil, fmt.Errorf("invalid left operand: %w", err)
		}
		right, err := parseExpression(raw.Right)
		if err != nil {
			return nil, fmt.Errorf("invalid right operand: %w", err)
		}
		return &ComparisonExpression{BaseExpression: raw.base(), Left: left, Right: right}, nil

	case ClassBoundConjunction:
		children, err := parseChildren(raw.Children)
		if err != nil {
			return nil, err
		}
		return &ConjunctionExpression{BaseExpression: raw.base(), Children: children}, nil

	case ClassBoundConstant:
		value, err := parseValue(raw.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid value: %w", err)
		}
		return &ConstantExpression{BaseExpression: raw.base(), Value: value}, nil

	case ClassBoundColumnRef:
		rt, err := parseLogicalType(raw.ReturnType)
		if err != nil {
			return nil, err
		}
		return &ColumnRefExpression{
			BaseExpression: raw.base(),
			Binding:        raw.Binding,
			ReturnType:     rt,
			Depth:          raw.Depth,
		}, nil

	case ClassBoundFunction:
		rt, err := parseLogicalType(raw.ReturnType)
		if err != nil {
			return nil, err
		}
		children, err := parseChildren(raw.Children)
		if err != nil {
			return nil, err
		}
		args := make([]LogicalType, 0, len(raw.Arguments))
		for _, a := range raw.Arguments {
			lt, err := parseLogicalType(a)
			if err != nil {
				return nil, fmt.Errorf("invalid argument type: %w", err)
			}
			args = append(args, lt)
		}
		return &FunctionExpression{
			BaseExpression: raw.base(),
			Name:           raw.Name,
			Children:       children,
			ReturnType:     rt,
			Arguments:      args,
			CatalogName:    raw.CatalogName,
			SchemaName:     raw.SchemaName,
			IsOperator:     raw.IsOperator,
		}, nil

	case ClassBoundCast:
		child, err := parseExpression(raw.Child)
		if err != nil {
			return nil, fmt.Errorf("invalid child: %w", err)
		}
		rt, err := parseLogicalType(raw.ReturnType)
		if err != nil {
			return nil, err
		}
		return &CastExpression{BaseExpression: raw.base(), Child: child, ReturnType: rt, TryCast: raw.TryCast}, nil

	case ClassBoundBetween:
		input, err := parseExpression(raw.Input)
		if err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}
		lower, err := parseExpression(raw.Lower)
		if err != nil {
			return nil, fmt.Errorf("invalid lower bound: %w", err)
		}
		upper, err := parseExpression(raw.Upper)
		if err != nil {
			return nil, fmt.Errorf("invalid upper bound: %w", err)
		}
		return &BetweenExpression{
			BaseExpression: raw.base(),
			Input:          input,
			Lower:          lower,
			Upper:          upper,
			LowerInclusive: raw.LowerInclusive,
			UpperInclusive: raw.UpperInclusive,
		}, nil

	case ClassBoundOperator:
		rt, err := parseLogicalType(raw.ReturnType)
		if err != nil {
			return nil, err
		}
		children, err := parseChildren(raw.Children)
		if err != nil {
			return nil, err
		}
		return &OperatorExpression{BaseExpression: raw.base(), Children: children, ReturnType: rt}, nil

	case ClassBoundCase:
		rt, err := parseLogicalType(raw.ReturnType)
		if err != nil {
			return nil, err
		}
		out := &CaseExpression{BaseExpression: raw.base(), ReturnType: rt}
		for i, check := range raw.CaseChecks {
			when, err := parseExpression(check.WhenExpr)
			if err != nil {
				return nil, fmt.Errorf("invalid when expression %d: %w", i, err)
			}
			then, err := parseExpression(check.ThenExpr)
			if err != nil {
				return nil, fmt.Errorf("invalid then expression %d: %w", i, err)
			}
			out.CaseChecks = append(out.CaseChecks, CaseCheck{WhenExpr: when, ThenExpr: then})
		}
		if !isNull(raw.ElseExpr) {
			if out.ElseExpr, err = parseExpression(raw.ElseExpr); err != nil {
				return nil, fmt.Errorf("invalid else expression: %w", err)
			}
		}
		return out, nil

	default:
		return &UnsupportedExpression{BaseExpression: raw.base()}, nil
	}
}

func parseChildren(raw []json.RawMessage) ([]Expression, error) {
	children := make([]Expression, 0, len(raw))
	for i, child := range raw {
		expr, err := parseExpression(child)
		if err != nil {
			return nil, fmt.Errorf("invalid child %d: %w", i, err)
		}
		children = append(children, expr)
	}
	return children, nil
}

func isNull(data json.RawMessage) bool {
	return len(data) == 0 || string(data) == "null"
}

func parseLogicalType(data json.RawMessage) (LogicalType, error) {
	if isNull(data) {
		return LogicalType{}, nil
	}

	var raw struct {
		ID       string `json:"id"`
		TypeInfo *struct {
			Type  string `json:"type"`
			Width int    `json:"width"`
			Scale int    `json:"scale"`
		} `json:"type_info"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return LogicalType{}, fmt.Errorf("invalid logical type: %w", err)
	}

	lt := LogicalType{ID: LogicalTypeID(raw.ID).Normalize()}
	if raw.TypeInfo != nil && raw.TypeInfo.Type == "DECIMAL_TYPE_INFO" {
		lt.Decimal = &DecimalTypeInfo{Width: raw.TypeInfo.Width, Scale: raw.TypeInfo.Scale}
	}
	return lt, nil
}

func parseValue(data json.RawMessage) (Value, error) {
	if isNull(data) {
		return Value{IsNull: true}, nil
	}

	var raw struct {
		Type   json.RawMessage `json:"type"`
		IsNull bool            `json:"is_null"`
		Value  json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Value{}, fmt.Errorf("invalid value: %w", err)
	}

	lt, err := parseLogicalType(raw.Type)
	if err != nil {
		return Value{}, fmt.Errorf("invalid value type: %w", err)
	}

	v := Value{Type: lt, IsNull: raw.IsNull || isNull(raw.Value)}
	if v.IsNull {
		return v, nil
	}
	if v.Data, err = parseValueData(raw.Value, lt); err != nil {
		return Value{}, fmt.Errorf("invalid %s value: %w", lt.ID, err)
	}
	return v, nil
}

func parseValueData(data json.RawMessage, lt LogicalType) (any, error) {
	switch lt.ID {
	case TypeIDBoolean:
		var v bool
		err := json.Unmarshal(data, &v)
		return v, err

	case TypeIDTinyInt, TypeIDSmallInt, TypeIDInteger, TypeIDBigInt,
		TypeIDDate, TypeIDTime, TypeIDTimeTZ,
		TypeIDTimestamp, TypeIDTimestampTZ, TypeIDTimestampMs, TypeIDTimestampNs, TypeIDTimestampSec:
		var v int64
		err := json.Unmarshal(data, &v)
		return v, err

	case TypeIDUTinyInt, TypeIDUSmallInt, TypeIDUInteger, TypeIDUBigInt:
		var v uint64
		err := json.Unmarshal(data, &v)
		return v, err

	case TypeIDHugeInt:
		var v struct {
			Upper int64  `json:"upper"`
			Lower uint64 `json:"lower"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		if (v.Upper != 0 || v.Lower > 1<<63-1) && (v.Upper != -1 || v.Lower < 1<<63) {
			return nil, fmt.Errorf("hugeint out of 64-bit range")
		}
		return int64(v.Lower), nil

	case TypeIDFloat, TypeIDDouble:
		var v float64
		err := json.Unmarshal(data, &v)
		return v, err

	case TypeIDDecimal:
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return strconv.ParseFloat(s, 64)
		}
		var f float64
		err := json.Unmarshal(data, &f)
		return f, err

	case TypeIDVarchar, TypeIDChar, TypeIDUUID:
		b, err := parseBytes(data)
		return string(b), err

	case TypeIDBlob:
		return parseBytes(data)

	case TypeIDInterval:
		var v Interval
		err := json.Unmarshal(data, &v)
		return v, err

	case TypeIDList:
		var raw struct {
			Children []json.RawMessage `json:"children"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		out := make([]Value, 0, len(raw.Children))
		for _, child := range raw.Children {
			v, err := parseValue(child)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	default:
		var v any
		err := json.Unmarshal(data, &v)
		return v, err
	}
}

// parseBytes accepts a plain JSON string or a {"base64": "..."} object,
// which DuckDB uses for values that are not valid UTF-8.
func parseBytes(data json.RawMessage) ([]byte, error) {
	var b64 struct {
		Base64 string `json:"base64"`
	}
	if err := json.Unmarshal(data, &b64); err == nil && b64.Base64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(b64.Base64)
		if err != nil {
			return nil, fmt.Errorf("invalid base64: %w", err)
		}
		return decoded, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return []byte(s), nil
}
