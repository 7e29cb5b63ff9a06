package predicate

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paulmach/orb"

	"github.com/hugr-lab/airport-predicate/filter"
	"github.com/hugr-lab/airport-predicate/function"
	"github.com/hugr-lab/airport-predicate/geometry"
)

var placesSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "seen", Type: arrow.FixedWidthTypes.Timestamp_us, Nullable: true},
	geometry.NewField("geom", true, 4326),
}, nil)

type place struct {
	id   *int64
	name string
	seen time.Time
	at   orb.Point
}

func ptr(n int64) *int64 { return &n }

func buildPlaces(t *testing.T, mem memory.Allocator, places []place) arrow.RecordBatch {
	t.Helper()
	b := array.NewRecordBuilder(mem, placesSchema)
	defer b.Release()

	ids := b.Field(0).(*array.Int64Builder)
	names := b.Field(1).(*array.StringBuilder)
	seen := b.Field(2).(*array.TimestampBuilder)
	geoms := b.Field(3).(*array.ExtensionBuilder).Builder.(*array.BinaryBuilder)
	for _, p := range places {
		if p.id == nil {
			ids.AppendNull()
		} else {
			ids.Append(*p.id)
		}
		names.Append(p.name)
		ts, err := arrow.TimestampFromTime(p.seen, arrow.Microsecond)
		if err != nil {
			t.Fatalf("timestamp: %v", err)
		}
		seen.Append(ts)
		wkb, err := geometry.Encode(p.at)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		geoms.Append(wkb)
	}
	return b.NewRecordBatch()
}

func samplePlaces() []place {
	day := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []place{
		{ptr(1), "a", day, orb.Point{0, 0}},
		{ptr(7), "b", day.Add(time.Hour), orb.Point{2, 1}},
		{ptr(8), "c", day.Add(2 * time.Hour), orb.Point{3, 1}},
		{nil, "d", day, orb.Point{4, 1}},
		{ptr(9), "e", day, orb.Point{5, 1}},
		{ptr(2), "f", day, orb.Point{6, 1}},
	}
}

func idsOf(t *testing.T, rec arrow.RecordBatch) []int64 {
	t.Helper()
	col := rec.Column(0).(*array.Int64)
	out := make([]int64, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			out = append(out, -1)
			continue
		}
		out = append(out, col.Value(i))
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRowFromRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := buildPlaces(t, mem, samplePlaces())
	defer rec.Release()

	row := RowFromRecord(rec, 1)
	if row[0] != int64(7) || row[1] != "b" {
		t.Errorf("unexpected row %v", row)
	}
	if _, ok := row[2].(arrow.Timestamp); !ok {
		t.Errorf("expected arrow.Timestamp, got %T", row[2])
	}
	if _, ok := row[3].([]byte); !ok {
		t.Errorf("expected WKB bytes, got %T", row[3])
	}
	if row := RowFromRecord(rec, 3); row[0] != nil {
		t.Errorf("expected null id, got %v", row[0])
	}
}

func TestFilterRecord(t *testing.T) {
	reg := function.NewBuiltinRegistry()
	var b filter.Builder
	id := func() *filter.ColumnRefExpression { return b.Column("id", filter.TypeIDBigInt) }

	tests := []struct {
		name   string
		filter filter.Expression
		want   []int64
	}{
		{"runs", filter.Compare(filter.TypeCompareGreaterThan, id(), filter.Int(5)), []int64{7, 8, 9}},
		{"single run", filter.Between(id(), filter.Int(7), filter.Int(8)), []int64{7, 8}},
		{"none", filter.Compare(filter.TypeCompareGreaterThan, id(), filter.Int(100)), []int64{}},
		{"all", filter.Compare(filter.TypeCompareGreaterThan, filter.Call("st_x", b.Column("geom", filter.TypeIDBlob)), filter.Float(-1)), []int64{1, 7, 8, -1, 9, 2}},
		{"geometry", filter.Compare(filter.TypeCompareGreaterThanOrEqual, filter.Call("st_x", b.Column("geom", filter.TypeIDBlob)), filter.Float(4)), []int64{-1, 9, 2}},
		{"timestamp", filter.Compare(filter.TypeCompareGreaterThan, b.Column("seen", filter.TypeIDTimestamp),
			filter.Timestamp(time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC))), []int64{7, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
			defer mem.AssertSize(t, 0)

			rec := buildPlaces(t, mem, samplePlaces())
			defer rec.Release()

			p, err := Compile(b.Build(tt.filter), placesSchema, KeyShapePlain, Config{}, reg, nil)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			out, err := p.FilterRecord(rec, mem)
			if err != nil {
				t.Fatalf("FilterRecord failed: %v", err)
			}
			defer out.Release()

			if got := idsOf(t, out); !equalIDs(got, tt.want) {
				t.Errorf("expected ids %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFilterRecordSchemaMismatch(t *testing.T) {
	rec := buildPlaces(t, memory.DefaultAllocator, samplePlaces())
	defer rec.Release()

	p := mustCompile(t, idGreaterThan(1), idNameSchema, nil, nil)
	if _, err := p.FilterRecord(rec, nil); err == nil {
		t.Error("expected schema mismatch error")
	}
}

func TestFilteredReader(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	var b filter.Builder
	fp := b.Build(filter.Compare(filter.TypeCompareGreaterThan, b.Column("id", filter.TypeIDBigInt), filter.Int(5)))
	p, err := Compile(fp, placesSchema, KeyShapeWindowed, Config{}, nil, nil)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	all := samplePlaces()
	recs := []arrow.RecordBatch{
		buildPlaces(t, mem, all[:2]),
		buildPlaces(t, mem, all[5:]),
		buildPlaces(t, mem, all[2:5]),
	}
	input, err := array.NewRecordReader(placesSchema, recs)
	if err != nil {
		t.Fatalf("NewRecordReader failed: %v", err)
	}
	for _, rec := range recs {
		rec.Release()
	}

	r, err := NewFilteredReader(p, input, mem)
	input.Release()
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer r.Release()

	var got []int64
	batches := 0
	for r.Next() {
		batches++
		got = append(got, idsOf(t, r.RecordBatch())...)
	}
	if err := r.Err(); err != nil {
		t.Fatalf("reader failed: %v", err)
	}
	if batches != 2 {
		t.Errorf("expected the empty batch to be skipped, got %d batches", batches)
	}
	if !equalIDs(got, []int64{7, 8, 9}) {
		t.Errorf("unexpected ids %v", got)
	}
}

func TestFilterPartitions(t *testing.T) {
	var b filter.Builder
	fp := b.Build(filter.Compare(filter.TypeCompareLessThanOrEqual, filter.Call("seq"), filter.Int(2)))
	p, err := Compile(fp, placesSchema, KeyShapePlain, Config{}, testRegistry(t), nil)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	readers := make([]array.RecordReader, 3)
	for i := range readers {
		rec := buildPlaces(t, memory.DefaultAllocator, samplePlaces())
		r, err := array.NewRecordReader(placesSchema, []arrow.RecordBatch{rec})
		rec.Release()
		if err != nil {
			t.Fatalf("NewRecordReader failed: %v", err)
		}
		defer r.Release()
		readers[i] = r
	}

	var mu sync.Mutex
	perPartition := map[int][]int64{}
	err = FilterPartitions(context.Background(), p, readers, func(_ context.Context, partition int, rec arrow.RecordBatch) error {
		ids := idsOf(t, rec)
		mu.Lock()
		defer mu.Unlock()
		perPartition[partition] = append(perPartition[partition], ids...)
		return nil
	})
	if err != nil {
		t.Fatalf("FilterPartitions failed: %v", err)
	}

	// Each partition forks its own counter, so each sees the first two rows.
	keys := make([]int, 0, len(perPartition))
	for k := range perPartition {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	if len(keys) != 3 {
		t.Fatalf("expected 3 partitions, got %v", keys)
	}
	for _, k := range keys {
		if !equalIDs(perPartition[k], []int64{1, 7}) {
			t.Errorf("partition %d: unexpected ids %v", k, perPartition[k])
		}
	}
}

func TestFilterPartitionsStopsOnError(t *testing.T) {
	p, err := Compile(nil, placesSchema, KeyShapePlain, Config{}, nil, nil)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	rec := buildPlaces(t, memory.DefaultAllocator, samplePlaces())
	r, err := array.NewRecordReader(placesSchema, []arrow.RecordBatch{rec})
	rec.Release()
	if err != nil {
		t.Fatalf("NewRecordReader failed: %v", err)
	}
	defer r.Release()

	stop := errors.New("stop")
	err = FilterPartitions(context.Background(), p, []array.RecordReader{r}, func(context.Context, int, arrow.RecordBatch) error {
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("expected emit error, got %v", err)
	}
}
