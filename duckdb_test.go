package predicate

import (
	"database/sql"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/hugr-lab/airport-predicate/filter"
	"github.com/hugr-lab/airport-predicate/function"
)

var peopleSchema = arrow.NewSchema([]arrow.Field{
	{Name: "k", Type: arrow.PrimitiveTypes.Int32},
	{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
}, nil)

var people = []Row{
	{int32(1), int64(1), "alice", 0.5},
	{int32(2), int64(3), "bob", 2.25},
	{int32(3), int64(6), nil, 1.5},
	{int32(4), nil, "anna", nil},
	{int32(5), int64(9), "Bob", 3.0},
	{int32(6), int64(12), "carl", -1.0},
	{int32(7), int64(2), "", 1.0},
}

func loadPeople(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("DuckDB not available: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE people (k INTEGER, id BIGINT, name VARCHAR, score DOUBLE)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for _, r := range people {
		if _, err := db.Exec(`INSERT INTO people VALUES (?, ?, ?, ?)`, r...); err != nil {
			t.Fatalf("insert %v: %v", r, err)
		}
	}
	return db
}

// TestMatchesDuckDB checks that a compiled clause selects the same rows as
// DuckDB executing the same clause rendered as SQL.
func TestMatchesDuckDB(t *testing.T) {
	db := loadPeople(t)
	defer db.Close()

	var b filter.Builder
	id := func() *filter.ColumnRefExpression { return b.Column("id", filter.TypeIDBigInt) }
	name := func() *filter.ColumnRefExpression { return b.Column("name", filter.TypeIDVarchar) }
	score := func() *filter.ColumnRefExpression { return b.Column("score", filter.TypeIDDouble) }

	tests := []struct {
		name   string
		filter filter.Expression
	}{
		{"greater than", filter.Compare(filter.TypeCompareGreaterThan, id(), filter.Int(5))},
		{"between", filter.Between(id(), filter.Int(2), filter.Int(8))},
		{"in", filter.In(id(), filter.Int(1), filter.Int(3), filter.Int(9))},
		{"is null", filter.Operator(filter.TypeOperatorIsNull, name())},
		{"is not null", filter.Operator(filter.TypeOperatorIsNotNull, id())},
		{"not", filter.Not(filter.Compare(filter.TypeCompareLessThan, score(), filter.Float(1.5)))},
		{"like", filter.Op("~~", name(), filter.String("a%"))},
		{"ilike", filter.Op("~~*", name(), filter.String("b%"))},
		{"arithmetic", filter.Compare(filter.TypeCompareGreaterThan,
			filter.Op("*", filter.Op("+", id(), filter.Int(1)), filter.Int(2)), filter.Int(10))},
		{"or", filter.Or(
			filter.Compare(filter.TypeCompareGreaterThan, id(), filter.Int(10)),
			filter.Compare(filter.TypeCompareEqual, name(), filter.String("bob")))},
		{"and with null", filter.And(
			filter.Compare(filter.TypeCompareGreaterThanOrEqual, score(), filter.Float(1)),
			filter.Compare(filter.TypeCompareNotEqual, name(), filter.String("bob")))},
		{"coalesce", filter.Compare(filter.TypeCompareGreaterThan,
			filter.Operator(filter.TypeOperatorCoalesce, score(), filter.Float(10)), filter.Float(2))},
		{"distinct from", filter.Compare(filter.TypeCompareDistinctFrom, id(), filter.Int(6))},
		{"lower", filter.Compare(filter.TypeCompareEqual, filter.Call("lower", name()), filter.String("bob"))},
		{"length", filter.Compare(filter.TypeCompareLessThan, filter.Call("length", name()), filter.Int(4))},
		{"case", filter.Compare(filter.TypeCompareEqual,
			filter.Case(filter.String("low"), filter.CaseCheck{
				WhenExpr: filter.Compare(filter.TypeCompareGreaterThan, score(), filter.Float(2)),
				ThenExpr: filter.String("high"),
			}), filter.String("high"))},
	}

	reg := function.NewBuiltinRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := b.Build(tt.filter)
			where := filter.NewDuckDBEncoder(nil).EncodeFilters(fp)
			if where == "" {
				t.Fatal("clause has no SQL form")
			}

			p, err := Compile(fp, peopleSchema, KeyShapePlain, Config{}, reg, nil)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			var got []int32
			for _, row := range people {
				if p.EvaluatePlain("k", row) {
					got = append(got, row[0].(int32))
				}
			}

			rows, err := db.Query(`SELECT k FROM people WHERE ` + where + ` ORDER BY k`)
			if err != nil {
				t.Fatalf("DuckDB rejected %s: %v", where, err)
			}
			defer rows.Close()
			var want []int32
			for rows.Next() {
				var k int32
				if err := rows.Scan(&k); err != nil {
					t.Fatalf("scan: %v", err)
				}
				want = append(want, k)
			}
			if err := rows.Err(); err != nil {
				t.Fatalf("rows: %v", err)
			}

			if len(got) != len(want) {
				t.Fatalf("%s: expected %v, got %v", where, want, got)
			}
			for i := range got {
				if got[i] != want[i] {
					t.Fatalf("%s: expected %v, got %v", where, want, got)
				}
			}
		})
	}
}
