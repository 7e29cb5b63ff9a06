package cli

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	predicate "github.com/hugr-lab/airport-predicate"
	"github.com/hugr-lab/airport-predicate/catalog"
	"github.com/hugr-lab/airport-predicate/flight"
)

// DefaultSchema holds the tables found directly in the data directory.
const DefaultSchema = "main"

// arrowExtensions lists the file extensions loaded as tables.
var arrowExtensions = map[string]bool{".arrows": true, ".arrow": true}

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Address string
	DataDir string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve Arrow IPC files over Arrow Flight",
		Long: `Serve every Arrow IPC stream file of the data directory as a Flight
table. Files directly in the directory belong to schema "main"; files in
a subdirectory belong to the schema named after it.

DoGet tickets may carry a DuckDB filter pushdown. Only matching rows are
streamed back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Address, "address", "", "listen address (overrides server.address)")
	cmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "data directory (overrides server.data_dir)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) (err error) {
	cfg := opts.config.Server
	if opts.Address != "" {
		cfg.Address = opts.Address
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, tables, err := loadCatalog(cfg.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		for _, t := range tables {
			t.Release()
		}
	}()

	plog, err := openProcessingLog(ctx, opts.config.ProcessingLog, opts.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := plog.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	srv, err := flight.NewServer(flight.Config{
		Catalog:       cat,
		Allocator:     memory.DefaultAllocator,
		Logger:        opts.logger,
		ProcessingLog: plog,
		Predicate:     predicate.Config{OmitRows: opts.config.ProcessingLog.OmitRows},
	})
	if err != nil {
		return err
	}

	serverOpts := []grpc.ServerOption{
		grpc.UnaryInterceptor(flight.UnaryServerInterceptor(opts.logger)),
		grpc.StreamInterceptor(flight.StreamServerInterceptor(opts.logger)),
	}
	if cfg.MaxMessageSize > 0 {
		serverOpts = append(serverOpts,
			grpc.MaxRecvMsgSize(cfg.MaxMessageSize),
			grpc.MaxSendMsgSize(cfg.MaxMessageSize),
		)
	}
	grpcServer := grpc.NewServer(serverOpts...)
	flight.RegisterFlightServer(grpcServer, srv)

	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Address, err)
	}

	opts.logger.Info("Flight server listening",
		"address", lis.Addr().String(),
		"data_dir", cfg.DataDir,
		"tables", len(tables),
	)

	serveErr := make(chan error, 1)
	go func() { serveErr <- grpcServer.Serve(lis) }()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		opts.logger.Info("Shutting down Flight server")
		grpcServer.GracefulStop()
		return nil
	}
}

// loadCatalog builds a catalog from the Arrow IPC files of dir. The caller
// releases the returned tables.
func loadCatalog(dir string) (*catalog.StaticCatalog, []*catalog.RecordTable, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var all []*catalog.RecordTable
	release := func() {
		for _, t := range all {
			t.Release()
		}
	}

	cat := catalog.NewStaticCatalog()
	schemas := map[string][]catalog.Table{}
	add := func(schema, path string) error {
		t, err := loadTable(path)
		if err != nil {
			return err
		}
		all = append(all, t)
		schemas[schema] = append(schemas[schema], t)
		return nil
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if !entry.IsDir() {
			if arrowExtensions[filepath.Ext(entry.Name())] {
				if err := add(DefaultSchema, path); err != nil {
					release()
					return nil, nil, err
				}
			}
			continue
		}
		files, err := os.ReadDir(path)
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("failed to read schema directory: %w", err)
		}
		for _, f := range files {
			if f.IsDir() || !arrowExtensions[filepath.Ext(f.Name())] {
				continue
			}
			if err := add(entry.Name(), filepath.Join(path, f.Name())); err != nil {
				release()
				return nil, nil, err
			}
		}
	}

	for name, tables := range schemas {
		cat.AddSchema(name, "", tables...)
	}
	return cat, all, nil
}

// loadTable reads one Arrow IPC stream file into a table named after the
// file.
func loadTable(path string) (*catalog.RecordTable, error) {
	schema, records, err := readArrowStream(path, memory.DefaultAllocator)
	if err != nil {
		return nil, err
	}
	defer releaseAll(records)

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return catalog.NewRecordTable(name, "", schema, records)
}
