package processinglog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DefaultTable is the table SQLSink writes to when none is given.
const DefaultTable = "processing_log"

// SQLSink inserts events into a database table through database/sql.
// Statements use "?" placeholders, as DuckDB expects.
type SQLSink struct {
	db      *sql.DB
	insert  string
	timeout time.Duration
}

// NewSQLSink creates table if it does not exist and returns a sink writing
// to it. An empty table uses DefaultTable.
func NewSQLSink(ctx context.Context, db *sql.DB, table string) (*SQLSink, error) {
	if table == "" {
		table = DefaultTable
	}
	name := quoteIdent(table)

	ddl := `CREATE TABLE IF NOT EXISTS ` + name + ` (
	id VARCHAR PRIMARY KEY,
	type VARCHAR NOT NULL,
	time TIMESTAMP NOT NULL,
	message VARCHAR NOT NULL,
	expression VARCHAR NOT NULL,
	record VARCHAR
)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("failed to create processing log table %s: %w", table, err)
	}

	return &SQLSink{
		db:      db,
		insert:  `INSERT INTO ` + name + ` (id, type, time, message, expression, record) VALUES (?, ?, ?, ?, ?, ?)`,
		timeout: 5 * time.Second,
	}, nil
}

func (s *SQLSink) Emit(ev Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var record any
	if ev.Record != nil {
		record = *ev.Record
	}
	_, err := s.db.ExecContext(ctx, s.insert,
		ev.ID.String(), ev.Type, ev.Time, ev.Message, ev.Expression, record)
	if err != nil {
		return fmt.Errorf("failed to insert processing log event: %w", err)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
