// Package processinglog carries diagnostic events for records that failed
// evaluation. Events describe the failure and, when enabled, the offending
// row; delivery is up to the Sink.
package processinglog

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// TypeRecordProcessingError is the type of events for records that could
// not be evaluated.
const TypeRecordProcessingError = "RECORD_PROCESSING_ERROR"

// Event is one processing log entry.
type Event struct {
	ID         uuid.UUID `json:"id" msgpack:"id"`
	Type       string    `json:"type" msgpack:"type"`
	Time       time.Time `json:"time" msgpack:"time"`
	Message    string    `json:"message" msgpack:"message"`
	Expression string    `json:"expression" msgpack:"expression"`
	// Record is the row rendered as a JSON list. Nil when the row was
	// absent or row logging is disabled.
	Record *string `json:"record" msgpack:"record"`
}

// RecordProcessingError builds the event for a record whose evaluation of
// expression failed with err. row is rendered only when includeRow is set.
func RecordProcessingError(expression string, err error, row []any, includeRow bool) Event {
	ev := Event{
		ID:         uuid.New(),
		Type:       TypeRecordProcessingError,
		Time:       time.Now().UTC(),
		Message:    fmt.Sprintf("Error evaluating predicate %s: %s", expression, err),
		Expression: expression,
	}
	if includeRow && row != nil {
		s := RenderRow(row)
		ev.Record = &s
	}
	return ev
}

// RenderRow renders row as a JSON list. Durations render as Go duration
// strings and geometries as WKT. Values that cannot be encoded fall back
// to their fmt representation.
func RenderRow(row []any) string {
	values := make([]any, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case time.Duration:
			values[i] = x.String()
		case orb.Geometry:
			values[i] = wkt.MarshalString(x)
		default:
			values[i] = v
		}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Sprintf("%v", row)
	}
	return string(data)
}
