package predicate

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/metric"
)

// Config contains options shared by every predicate compiled with it.
type Config struct {
	// Logger for compilation and recovered-panic logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// Note: If LogLevel is specified, a new logger will be created with that level.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, the default logger is used as is.
	// Valid values: slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError
	// If Logger is also provided, LogLevel is ignored (use pre-configured logger).
	LogLevel *slog.Level

	// OmitRows leaves the offending row out of processing log events.
	// OPTIONAL: Events carry the row by default.
	OmitRows bool

	// Meter records evaluation counters.
	// OPTIONAL: If nil, no metrics are recorded.
	Meter metric.Meter
}

// Standard errors returned by predicate package.
var (
	// ErrInvalidConfig indicates Config or Compile argument validation failed.
	ErrInvalidConfig = errors.New("invalid predicate config")

	// ErrNilSchema indicates Compile was called without a row schema.
	ErrNilSchema = errors.New("schema must not be nil")

	// ErrEvaluation matches every per-record evaluation fault.
	// Faults never escape the evaluator; they reach the processing log and
	// callers observing EvaluationError values directly.
	ErrEvaluation = errors.New("predicate evaluation failed")
)

// validateConfig checks that Config fields are valid.
func validateConfig(config Config) error {
	if config.LogLevel != nil {
		switch *config.LogLevel {
		case slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError:
		default:
			return fmt.Errorf("unsupported log level %v", *config.LogLevel)
		}
	}
	return nil
}

// logger returns the configured logger, building one at LogLevel when only
// a level is given.
func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	if c.LogLevel != nil {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: *c.LogLevel}))
	}
	return slog.Default()
}
