package flight

import (
	"context"
	"errors"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	predicate "github.com/hugr-lab/airport-predicate"
	"github.com/hugr-lab/airport-predicate/catalog"
	"github.com/hugr-lab/airport-predicate/errmsg"
	"github.com/hugr-lab/airport-predicate/internal/recovery"
)

// DoGet streams the rows of a table that satisfy the ticket's filter.
//
// The ticket must be encoded using EncodeTicket.
// The handler:
//  1. Decodes the ticket and parses its filter
//  2. Looks up the table in the catalog
//  3. Compiles the filter against the table's Arrow schema
//  4. Calls the table's Scan function to get a RecordReader
//  5. Streams the matching rows using Arrow IPC format
//
// Rows the predicate cannot evaluate are reported to the processing log
// and dropped. They never fail the stream.
func (s *Server) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	ctx := EnrichContextMetadata(stream.Context())
	logger := requestLogger(ctx, s.logger)

	ticketData, err := DecodeTicket(ticket.GetTicket())
	if err != nil {
		logger.Error("Failed to decode ticket", "error", err)
		return status.Errorf(codes.InvalidArgument, "invalid ticket: %v", err)
	}
	logger = logger.With("schema", ticketData.Schema, "table", ticketData.Table)

	table, err := s.lookupTable(ctx, ticketData.Schema, ticketData.Table)
	if err != nil {
		return err
	}
	pred, err := s.compile(logger, ticketData, table)
	if err != nil {
		return err
	}

	reader, err := recovery.Value(logger, "table scan", func() (array.RecordReader, error) {
		return table.Scan(ctx, ticketData.ToScanOptions(pred.Filter()))
	})
	if err != nil {
		var pe *recovery.PanicError
		if errors.As(err, &pe) {
			return recovery.ToStatus(err)
		}
		logger.Error("Table scan failed", "error", err)
		return status.Errorf(codes.Internal, "table scan failed: %v", err)
	}
	defer reader.Release()

	if !reader.Schema().Equal(table.ArrowSchema()) {
		logger.Error("RecordReader schema does not match table schema",
			"table_schema_fields", table.ArrowSchema().NumFields(),
			"reader_schema_fields", reader.Schema().NumFields(),
		)
		return status.Errorf(codes.Internal,
			"schema mismatch: table has %d fields, reader has %d fields",
			table.ArrowSchema().NumFields(), reader.Schema().NumFields())
	}

	filtered, err := predicate.NewFilteredReader(pred, reader, s.allocator)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to filter scan: %v", err)
	}
	defer filtered.Release()

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(filtered.Schema()), ipc.WithAllocator(s.allocator))
	defer writer.Close()

	batchCount := 0
	totalRows := int64(0)
	for filtered.Next() {
		if ctx.Err() != nil {
			logger.Debug("DoGet cancelled by client",
				"batches_sent", batchCount,
				"rows_sent", totalRows,
			)
			return status.Error(codes.Canceled, "request cancelled")
		}

		record := filtered.RecordBatch()
		batchCount++
		totalRows += record.NumRows()
		if err := writer.Write(record); err != nil {
			logger.Error("Failed to write record batch", "batch", batchCount, "error", err)
			return status.Errorf(codes.Internal, "failed to write batch %d: %v", batchCount, err)
		}
	}
	if err := filtered.Err(); err != nil {
		logger.Error("RecordReader error during iteration", "batch", batchCount, "error", err)
		return status.Errorf(codes.Internal, "scan error after batch %d: %v", batchCount, err)
	}

	logger.Debug("DoGet completed successfully",
		"batches_sent", batchCount,
		"total_rows", totalRows,
	)
	return nil
}

// lookupTable resolves schema.table, mapping absence to codes.NotFound.
func (s *Server) lookupTable(ctx context.Context, schemaName, tableName string) (catalog.Table, error) {
	schema, err := s.catalog.Schema(ctx, schemaName)
	if err != nil {
		s.logger.Error("Failed to get schema from catalog", "schema", schemaName, "error", err)
		return nil, status.Errorf(codes.Internal, "failed to get schema: %v", err)
	}
	if schema == nil {
		return nil, status.Errorf(codes.NotFound, "schema not found: %s", schemaName)
	}

	table, err := schema.Table(ctx, tableName)
	if err != nil {
		s.logger.Error("Failed to get table from schema", "schema", schemaName, "table", tableName, "error", err)
		return nil, status.Errorf(codes.Internal, "failed to get table: %v", err)
	}
	if table == nil {
		return nil, status.Errorf(codes.NotFound, "table not found: %s.%s", schemaName, tableName)
	}
	if table.ArrowSchema() == nil {
		return nil, status.Errorf(codes.Internal, "table %s.%s has nil Arrow schema", schemaName, tableName)
	}
	return table, nil
}

// compile builds the ticket's predicate against the table schema. A filter
// that cannot be compiled is the client's fault and maps to
// codes.InvalidArgument with every cause listed.
func (s *Server) compile(logger *slog.Logger, ticketData *TicketData, table catalog.Table) (*predicate.Predicate, error) {
	fp, err := ticketData.FilterPushdown()
	if err != nil {
		logger.Error("Failed to parse filter", "error", err)
		return nil, status.Error(codes.InvalidArgument, errmsg.Build(err))
	}

	config := s.predicate
	config.Logger = logger
	pred, err := predicate.Compile(fp, table.ArrowSchema(), predicate.KeyShapePlain, config, s.functions, s.sink)
	if err != nil {
		var ce *predicate.CompilationError
		if errors.As(err, &ce) {
			logger.Debug("Filter rejected", "error", err)
			return nil, status.Error(codes.InvalidArgument, errmsg.Build(err))
		}
		logger.Error("Failed to compile filter", "error", err)
		return nil, status.Errorf(codes.Internal, "failed to compile filter: %v", err)
	}
	return pred, nil
}
