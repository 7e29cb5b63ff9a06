package filter

import "strings"

// EncoderOptions configures encoding behavior.
type EncoderOptions struct {
	// ColumnMapping maps original column names to target names.
	// Columns not in the map use their original names.
	ColumnMapping map[string]string

	// ColumnExpressions maps column names to SQL expressions.
	// Takes precedence over ColumnMapping.
	ColumnExpressions map[string]string

	// Describe renders nodes that have no SQL form as <CLASS:TYPE> markers
	// instead of dropping them. Output in this mode is meant for people,
	// not for a database.
	Describe bool
}

// operatorFunctions lists the DuckDB function names that are binary or
// unary operators rather than catalog functions.
var operatorFunctions = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "//": true, "%": true,
	"~~": true, "!~~": true, "~~*": true, "!~~*": true,
	"~": true, "!~": true, "~*": true, "!~*": true,
	"||": true,
}

// FunctionListValue is the function DuckDB uses for IN lists.
const FunctionListValue = "list_value"

// IsOperatorFunction reports whether name is an operator serialized as a function.
func IsOperatorFunction(name string) bool {
	return operatorFunctions[name]
}

// quoteLiteral returns a SQL string literal with proper escaping.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteIdentifier returns a quoted identifier if needed.
// DuckDB uses double quotes for identifiers.
func quoteIdentifier(name string) string {
	if needsQuoting(name) {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}

func needsQuoting(name string) bool {
	if name == "" {
		return true
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		letter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
		digit := c >= '0' && c <= '9'
		if !letter && !(digit && i > 0) {
			return true
		}
	}
	return reservedWords[strings.ToUpper(name)]
}

var reservedWords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AND": true, "OR": true, "NOT": true,
	"NULL": true, "TRUE": true, "FALSE": true, "TABLE": true, "ON": true, "AS": true,
	"IN": true, "IS": true, "LIKE": true, "ILIKE": true, "BETWEEN": true, "CASE": true,
	"WHEN": true, "THEN": true, "ELSE": true, "END": true, "ORDER": true, "BY": true,
	"GROUP": true, "HAVING": true, "LIMIT": true, "DISTINCT": true, "CAST": true,
	"INTERVAL": true, "DATE": true, "TIME": true, "TIMESTAMP": true, "DEFAULT": true,
}
