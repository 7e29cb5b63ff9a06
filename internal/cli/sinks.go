package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/hugr-lab/airport-predicate/processinglog"
)

// processingLog is the sink built from ProcessingLogConfig together with
// the resources it holds open.
type processingLog struct {
	processinglog.Sink
	closers []func() error
}

// Close flushes and closes every destination.
func (p *processingLog) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

// openProcessingLog builds the configured destinations. Events always go to
// logger at Warn level.
func openProcessingLog(ctx context.Context, cfg ProcessingLogConfig, logger *slog.Logger) (*processingLog, error) {
	sinks := processinglog.MultiSink{processinglog.NewSlogSink(logger, slog.LevelWarn)}
	pl := &processingLog{}

	if cfg.Stream != "" {
		f, err := os.OpenFile(cfg.Stream, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open processing log stream: %w", err)
		}
		stream, err := processinglog.NewStreamSink(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		sinks = append(sinks, stream)
		pl.closers = append(pl.closers, f.Close, stream.Close)
	}

	if cfg.DuckDB != "" {
		db, err := sql.Open("duckdb", cfg.DuckDB)
		if err != nil {
			_ = pl.Close()
			return nil, fmt.Errorf("failed to open processing log database: %w", err)
		}
		sqlSink, err := processinglog.NewSQLSink(ctx, db, cfg.Table)
		if err != nil {
			_ = db.Close()
			_ = pl.Close()
			return nil, err
		}
		sinks = append(sinks, sqlSink)
		pl.closers = append(pl.closers, db.Close)
	}

	pl.Sink = sinks
	return pl, nil
}
