package flight

import (
	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ListFlights sends one FlightInfo per catalog table, each carrying the
// table schema and an unfiltered ticket.
//
// Criteria parameter is currently ignored (returns all tables).
func (s *Server) ListFlights(criteria *flight.Criteria, stream flight.FlightService_ListFlightsServer) error {
	ctx := EnrichContextMetadata(stream.Context())
	logger := requestLogger(ctx, s.logger)

	schemas, err := s.catalog.Schemas(ctx)
	if err != nil {
		logger.Error("Failed to list schemas", "error", err)
		return status.Errorf(codes.Internal, "failed to list schemas: %v", err)
	}

	sent := 0
	for _, schema := range schemas {
		tables, err := schema.Tables(ctx)
		if err != nil {
			logger.Error("Failed to list tables", "schema", schema.Name(), "error", err)
			return status.Errorf(codes.Internal, "failed to list tables for schema %s: %v", schema.Name(), err)
		}
		for _, table := range tables {
			ticket, err := EncodeTicket(schema.Name(), table.Name(), nil)
			if err != nil {
				return status.Errorf(codes.Internal, "failed to encode ticket: %v", err)
			}
			info := &flight.FlightInfo{
				Schema: flight.SerializeSchema(table.ArrowSchema(), s.allocator),
				FlightDescriptor: &flight.FlightDescriptor{
					Type: flight.DescriptorPATH,
					Path: []string{schema.Name(), table.Name()},
				},
				Endpoint: []*flight.FlightEndpoint{
					{Ticket: &flight.Ticket{Ticket: ticket}},
				},
				TotalRecords: -1,
				TotalBytes:   -1,
			}
			if err := stream.Send(info); err != nil {
				logger.Error("Failed to send FlightInfo", "error", err)
				return status.Errorf(codes.Internal, "failed to send flight info: %v", err)
			}
			sent++
		}
	}

	logger.Debug("ListFlights completed successfully", "flights", sent)
	return nil
}
