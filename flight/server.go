// Package flight serves catalog tables over Arrow Flight, filtering
// scanned rows with the clause a client pushes down in its ticket.
package flight

import (
	"fmt"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	predicate "github.com/hugr-lab/airport-predicate"
	"github.com/hugr-lab/airport-predicate/catalog"
	"github.com/hugr-lab/airport-predicate/function"
	"github.com/hugr-lab/airport-predicate/processinglog"
)

// Config contains configuration for the Flight server.
type Config struct {
	// Catalog provides schemas and tables.
	// REQUIRED: MUST NOT be nil.
	Catalog catalog.Catalog

	// Functions resolves function calls in pushed-down filters.
	// OPTIONAL: Uses function.NewBuiltinRegistry() if nil.
	Functions *function.Registry

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger

	// ProcessingLog receives events for rows that could not be evaluated.
	// OPTIONAL: If nil, events are logged through Logger at Warn level.
	ProcessingLog processinglog.Sink

	// Predicate configures every predicate compiled for a DoGet.
	// Its Logger defaults to Logger.
	Predicate predicate.Config
}

// Server implements the Flight service handlers.
// Embeds BaseFlightServer for forward compatibility with protocol changes.
type Server struct {
	flight.BaseFlightServer

	catalog   catalog.Catalog
	functions *function.Registry
	allocator memory.Allocator
	logger    *slog.Logger
	sink      processinglog.Sink
	predicate predicate.Config
}

// NewServer creates a Flight server from config.
func NewServer(config Config) (*Server, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	allocator := config.Allocator
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	functions := config.Functions
	if functions == nil {
		functions = function.NewBuiltinRegistry()
	}
	sink := config.ProcessingLog
	if sink == nil {
		sink = processinglog.NewSlogSink(logger, slog.LevelWarn)
	}
	pc := config.Predicate
	if pc.Logger == nil {
		pc.Logger = logger
	}

	return &Server{
		catalog:   config.Catalog,
		functions: functions,
		allocator: allocator,
		logger:    logger,
		sink:      sink,
		predicate: pc,
	}, nil
}

// validateConfig checks that required Config fields are valid.
func validateConfig(config Config) error {
	if config.Catalog == nil {
		return ErrNilCatalog
	}
	return nil
}

// RegisterFlightServer registers the Flight service on the provided gRPC server.
// This follows the standard gRPC service registration pattern.
func RegisterFlightServer(grpcServer *grpc.Server, flightServer *Server) {
	flight.RegisterFlightServiceServer(grpcServer, flightServer)
}
