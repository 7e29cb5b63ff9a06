package processinglog

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"

	_ "github.com/duckdb/duckdb-go/v2"
)

func TestRecordProcessingError(t *testing.T) {
	err := errors.New("cannot coerce value")
	row := []any{int64(1), "x", nil}

	ev := RecordProcessingError("(ID > 5)", err, row, true)
	if ev.Type != TypeRecordProcessingError {
		t.Errorf("expected type %s, got %s", TypeRecordProcessingError, ev.Type)
	}
	if want := "Error evaluating predicate (ID > 5): cannot coerce value"; ev.Message != want {
		t.Errorf("expected message %q, got %q", want, ev.Message)
	}
	if ev.Expression != "(ID > 5)" {
		t.Errorf("unexpected expression %q", ev.Expression)
	}
	if ev.Record == nil || *ev.Record != `[1,"x",null]` {
		t.Errorf("unexpected record %v", ev.Record)
	}
	if ev.Time.IsZero() || ev.ID.String() == "" {
		t.Error("expected time and id to be set")
	}

	if ev := RecordProcessingError("x", err, row, false); ev.Record != nil {
		t.Error("expected no record when rows are excluded")
	}
	if ev := RecordProcessingError("x", err, nil, true); ev.Record != nil {
		t.Error("expected no record for an absent row")
	}
}

func TestRenderRow(t *testing.T) {
	got := RenderRow([]any{90 * time.Second, orb.Point{1, 2}, []byte("hi"), true})
	want := `["1m30s","POINT(1 2)","aGk=",true]`
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestCollectorConcurrent(t *testing.T) {
	var c Collector
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Emit(Event{Message: "m"})
		}()
	}
	wg.Wait()
	if c.Len() != 50 || len(c.Events()) != 50 {
		t.Errorf("expected 50 events, got %d", c.Len())
	}
	c.Reset()
	if c.Len() != 0 {
		t.Error("expected empty collector after Reset")
	}
}

func TestMultiSink(t *testing.T) {
	var a, b Collector
	boom := errors.New("boom")
	m := MultiSink{&a, SinkFunc(func(Event) error { return boom }), &b}

	err := m.Emit(Event{Message: "m"})
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error, got %v", err)
	}
	if a.Len() != 1 || b.Len() != 1 {
		t.Error("expected every sink to receive the event")
	}
	if err := Discard.Emit(Event{}); err != nil {
		t.Errorf("Discard returned %v", err)
	}
}

func TestSlogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	record := `[1]`
	sink := NewSlogSink(logger, slog.LevelWarn)

	if err := sink.Emit(Event{Type: TypeRecordProcessingError, Message: "bad row", Expression: "x > 1", Record: &record}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"level":"WARN"`, `"msg":"bad row"`, `"expression":"x > 1"`, `"record":"[1]"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestStreamRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewStreamSink(&buf)
	if err != nil {
		t.Fatalf("NewStreamSink failed: %v", err)
	}
	in := []Event{
		RecordProcessingError("a > 1", errors.New("first"), []any{int64(1)}, true),
		RecordProcessingError("a > 1", errors.New("second"), nil, true),
	}
	for _, ev := range in {
		if err := sink.Emit(ev); err != nil {
			t.Fatalf("Emit failed: %v", err)
		}
	}
	sink.Close()

	r, err := NewStreamReader(&buf)
	if err != nil {
		t.Fatalf("NewStreamReader failed: %v", err)
	}
	defer r.Close()
	for i, want := range in {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("Next %d failed: %v", i, err)
		}
		if got.ID != want.ID || got.Message != want.Message || !got.Time.Equal(want.Time) {
			t.Errorf("event %d mismatch: %+v vs %+v", i, got, want)
		}
		if (got.Record == nil) != (want.Record == nil) {
			t.Errorf("event %d record mismatch", i)
		}
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestSQLSink(t *testing.T) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("DuckDB not available: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	sink, err := NewSQLSink(ctx, db, "")
	if err != nil {
		t.Fatalf("NewSQLSink failed: %v", err)
	}
	if err := sink.Emit(RecordProcessingError("id > 5", errors.New("bad"), []any{"x"}, true)); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if err := sink.Emit(RecordProcessingError("id > 5", errors.New("bad"), nil, true)); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	var total, withRecord int
	if err := db.QueryRowContext(ctx, `SELECT count(*), count(record) FROM processing_log`).Scan(&total, &withRecord); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if total != 2 || withRecord != 1 {
		t.Errorf("expected 2 rows with 1 record, got %d and %d", total, withRecord)
	}

	if _, err := NewSQLSink(ctx, db, ""); err != nil {
		t.Errorf("expected table creation to be idempotent: %v", err)
	}
}
