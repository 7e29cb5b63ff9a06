package predicate

import (
	"strconv"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/airport-predicate/filter"
	"github.com/hugr-lab/airport-predicate/function"
)

var benchSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "name", Type: arrow.BinaryTypes.String},
	{Name: "value", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// benchFilter is id % 3 = 0 AND lower(name) LIKE 'row%' AND value < 500.
func benchFilter() *filter.FilterPushdown {
	var b filter.Builder
	return b.Build(filter.And(
		filter.Compare(filter.TypeCompareEqual,
			filter.Op("%", b.Column("id", filter.TypeIDBigInt), filter.Int(3)), filter.Int(0)),
		filter.Op("~~", filter.Call("lower", b.Column("name", filter.TypeIDVarchar)), filter.String("row%")),
		filter.Compare(filter.TypeCompareLessThan, b.Column("value", filter.TypeIDDouble), filter.Float(500)),
	))
}

func benchRecord(rows int) arrow.RecordBatch {
	builder := array.NewRecordBuilder(memory.DefaultAllocator, benchSchema)
	defer builder.Release()
	for i := 0; i < rows; i++ {
		builder.Field(0).(*array.Int64Builder).Append(int64(i))
		builder.Field(1).(*array.StringBuilder).Append("ROW_" + strconv.Itoa(i))
		builder.Field(2).(*array.Float64Builder).Append(float64(i % 1000))
	}
	return builder.NewRecordBatch()
}

// BenchmarkCompile benchmarks binding and compiling a clause.
func BenchmarkCompile(b *testing.B) {
	fp := benchFilter()
	reg := function.NewBuiltinRegistry()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Compile(fp, benchSchema, KeyShapePlain, Config{}, reg, nil); err != nil {
			b.Fatalf("Compile failed: %v", err)
		}
	}
}

// BenchmarkEvaluatePlain benchmarks evaluating one row.
func BenchmarkEvaluatePlain(b *testing.B) {
	p, err := Compile(benchFilter(), benchSchema, KeyShapePlain, Config{}, function.NewBuiltinRegistry(), nil)
	if err != nil {
		b.Fatalf("Compile failed: %v", err)
	}
	row := Row{int64(9), "ROW_9", float64(9)}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if !p.EvaluatePlain("k", row) {
			b.Fatal("expected match")
		}
	}
}

// BenchmarkFilterRecord benchmarks filtering records of varying sizes.
func BenchmarkFilterRecord(b *testing.B) {
	p, err := Compile(benchFilter(), benchSchema, KeyShapePlain, Config{}, function.NewBuiltinRegistry(), nil)
	if err != nil {
		b.Fatalf("Compile failed: %v", err)
	}

	for _, rows := range []int{100, 1000, 10000} {
		b.Run("rows_"+strconv.Itoa(rows), func(b *testing.B) {
			rec := benchRecord(rows)
			defer rec.Release()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				out, err := p.FilterRecord(rec, memory.DefaultAllocator)
				if err != nil {
					b.Fatalf("FilterRecord failed: %v", err)
				}
				out.Release()
			}
			b.ReportMetric(float64(rows)*float64(b.N)/b.Elapsed().Seconds(), "rows/s")
		})
	}
}

// BenchmarkConcurrentEvaluation benchmarks one predicate shared by
// parallel goroutines.
func BenchmarkConcurrentEvaluation(b *testing.B) {
	p, err := Compile(benchFilter(), benchSchema, KeyShapePlain, Config{}, function.NewBuiltinRegistry(), nil)
	if err != nil {
		b.Fatalf("Compile failed: %v", err)
	}
	row := Row{int64(3), "ROW_3", float64(3)}

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			p.EvaluatePlain("k", row)
		}
	})
}
