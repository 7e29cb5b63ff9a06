package flight

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/hugr-lab/airport-predicate/catalog"
	"github.com/hugr-lab/airport-predicate/filter"
)

// TicketData represents the decoded content of a Flight ticket.
// Tickets are opaque byte slices naming the table to scan, plus the filter
// the client pushed down.
type TicketData struct {
	// Schema is the schema name (e.g., "main", "staging")
	Schema string `json:"schema"`

	// Table is the table name (e.g., "users", "orders")
	Table string `json:"table"`

	// Columns the client will read (optional, nil means all columns)
	Columns []string `json:"columns,omitempty"`

	// Filter is DuckDB filter pushdown JSON (optional, absent means no filter)
	Filter json.RawMessage `json:"filter,omitempty"`
}

// EncodeTicket creates an opaque ticket for a scan of schema.table.
// filterJSON may be nil. It is validated before encoding.
func EncodeTicket(schema, table string, filterJSON []byte, columns ...string) ([]byte, error) {
	ticket := TicketData{
		Schema:  schema,
		Table:   table,
		Columns: columns,
		Filter:  filterJSON,
	}
	if err := ticket.validate(); err != nil {
		return nil, err
	}
	if _, err := ticket.FilterPushdown(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(ticket)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return data, nil
}

// DecodeTicket parses an opaque ticket.
// Returns error if ticket is invalid or cannot be decoded.
// The filter is validated separately by FilterPushdown.
func DecodeTicket(ticketBytes []byte) (*TicketData, error) {
	if len(ticketBytes) == 0 {
		return nil, fmt.Errorf("ticket cannot be empty")
	}

	var ticket TicketData
	if err := json.Unmarshal(ticketBytes, &ticket); err != nil {
		return nil, fmt.Errorf("failed to decode ticket: %w", err)
	}
	if err := ticket.validate(); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (td *TicketData) validate() error {
	if td.Schema == "" {
		return fmt.Errorf("schema name cannot be empty")
	}
	if td.Table == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	return nil
}

// FilterPushdown parses the ticket's filter. A ticket without a filter
// yields an empty clause.
func (td *TicketData) FilterPushdown() (*filter.FilterPushdown, error) {
	if len(td.Filter) == 0 || string(td.Filter) == "null" {
		return &filter.FilterPushdown{}, nil
	}
	fp, err := filter.Parse(td.Filter)
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	return fp, nil
}

// ToScanOptions converts TicketData to catalog.ScanOptions carrying the
// parsed filter fp.
func (td *TicketData) ToScanOptions(fp *filter.FilterPushdown) *catalog.ScanOptions {
	return &catalog.ScanOptions{
		Columns: td.Columns,
		Filter:  fp,
	}
}
