package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration shared by all commands.
//
// Example:
//
//	log_level: info
//	processing_log:
//	  omit_rows: false
//	  stream: /var/log/predicate/events.zst
//	  duckdb: /var/lib/predicate/log.duckdb
//	server:
//	  address: ":8815"
//	  data_dir: ./data
type Config struct {
	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level"`

	ProcessingLog ProcessingLogConfig `yaml:"processing_log"`
	Server        ServerConfig        `yaml:"server"`
}

// ProcessingLogConfig selects where events for unevaluable rows go.
// Events always go to the application log. Stream and DuckDB add
// destinations.
type ProcessingLogConfig struct {
	// OmitRows leaves the offending row out of each event.
	OmitRows bool `yaml:"omit_rows"`

	// Stream is a file receiving zstd-compressed MessagePack frames.
	Stream string `yaml:"stream"`

	// DuckDB is a database file receiving one table row per event.
	DuckDB string `yaml:"duckdb"`

	// Table names the DuckDB table. Defaults to processing_log.
	Table string `yaml:"table"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	// Address is the listen address. Defaults to :8815.
	Address string `yaml:"address"`

	// MaxMessageSize bounds gRPC messages in bytes. Defaults to 16 MiB.
	MaxMessageSize int `yaml:"max_message_size"`

	// DataDir holds the Arrow IPC files served as tables.
	DataDir string `yaml:"data_dir"`
}

const (
	defaultAddress        = ":8815"
	defaultMaxMessageSize = 16 << 20
)

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Address:        defaultAddress,
			MaxMessageSize: defaultMaxMessageSize,
			DataDir:        ".",
		},
	}
}

// LoadConfig reads path over the defaults. An empty path returns the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	var errs []error
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Server.MaxMessageSize < 0 {
		errs = append(errs, fmt.Errorf("server.max_message_size must not be negative, got %d", c.Server.MaxMessageSize))
	}
	if c.ProcessingLog.Table != "" && c.ProcessingLog.DuckDB == "" {
		errs = append(errs, errors.New("processing_log.table requires processing_log.duckdb"))
	}
	return errors.Join(errs...)
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
