package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GetFlightInfo returns schema metadata and a ticket for a table scan.
//
// Two descriptor forms are accepted:
//   - PATH [schema_name, table_name]: the ticket scans the whole table.
//   - CMD holding an encoded ticket: the ticket's filter is compiled
//     against the table schema first, so an invalid filter is rejected
//     before any data is requested.
//
// Returns FlightInfo with:
//   - Schema: Arrow schema for the table
//   - Endpoints: Single endpoint with the ticket
func (s *Server) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	ctx = EnrichContextMetadata(ctx)
	logger := requestLogger(ctx, s.logger)

	var ticketData *TicketData
	switch desc.GetType() {
	case flight.DescriptorPATH:
		path := desc.GetPath()
		if len(path) != 2 {
			return nil, status.Error(codes.InvalidArgument, "path must contain exactly 2 elements: [schema_name, table_name]")
		}
		ticketData = &TicketData{Schema: path[0], Table: path[1]}
	case flight.DescriptorCMD:
		td, err := DecodeTicket(desc.GetCmd())
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid command: %v", err)
		}
		ticketData = td
	default:
		return nil, status.Error(codes.InvalidArgument, "descriptor must be PATH or CMD type")
	}
	logger = logger.With("schema", ticketData.Schema, "table", ticketData.Table)

	table, err := s.lookupTable(ctx, ticketData.Schema, ticketData.Table)
	if err != nil {
		return nil, err
	}
	pred, err := s.compile(logger, ticketData, table)
	if err != nil {
		return nil, err
	}

	ticket, err := EncodeTicket(ticketData.Schema, ticketData.Table, ticketData.Filter, ticketData.Columns...)
	if err != nil {
		logger.Error("Failed to encode ticket", "error", err)
		return nil, status.Errorf(codes.Internal, "failed to encode ticket: %v", err)
	}

	logger.Debug("GetFlightInfo successful",
		"expression", pred.Expression(),
		"num_fields", table.ArrowSchema().NumFields(),
	)

	return &flight.FlightInfo{
		Schema:           flight.SerializeSchema(table.ArrowSchema(), s.allocator),
		FlightDescriptor: desc,
		Endpoint: []*flight.FlightEndpoint{
			{Ticket: &flight.Ticket{Ticket: ticket}},
		},
		TotalRecords: -1, // Unknown until scan
		TotalBytes:   -1,
	}, nil
}
