package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/spf13/cobra"
)

// Config holds process settings. ENV names are listed on each field.
type Config struct {
	// Addr is the HTTP listen address. ENV: MCP_ADDR
	Addr string `env:"MCP_ADDR,default=127.0.0.1:8080"`
	// LogLevel is one of debug, info, warn or error. ENV: MCP_LOG_LEVEL
	LogLevel string `env:"MCP_LOG_LEVEL,default=info"`
	// LogFormat is json or text. ENV: MCP_LOG_FORMAT
	LogFormat string `env:"MCP_LOG_FORMAT,default=json"`
	// MaxBodyBytes caps HTTP request bodies. ENV: MCP_MAX_BODY_BYTES
	MaxBodyBytes int64 `env:"MCP_MAX_BODY_BYTES,default=4194304"`
	// ShutdownTimeout bounds graceful shutdown. ENV: MCP_SHUTDOWN_TIMEOUT
	ShutdownTimeout time.Duration `env:"MCP_SHUTDOWN_TIMEOUT,default=10s"`
	// OTLP enables OTLP/HTTP trace and metric export configured by the
	// standard OTEL_EXPORTER_OTLP_* variables. ENV: MCP_OTLP
	OTLP bool `env:"MCP_OTLP,default=false"`
}

// loadConfig decodes the environment and applies any flags set on cmd.
func loadConfig(cmd *cobra.Command) (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	flags := cmd.Flags()
	if f := flags.Lookup("log-level"); f != nil && f.Changed {
		cfg.LogLevel = f.Value.String()
	}
	if f := flags.Lookup("log-format"); f != nil && f.Changed {
		cfg.LogFormat = f.Value.String()
	}
	if f := flags.Lookup("addr"); f != nil && f.Changed {
		cfg.Addr = f.Value.String()
	}
	if f := flags.Lookup("max-body-bytes"); f != nil && f.Changed {
		n, err := flags.GetInt64("max-body-bytes")
		if err != nil {
			return Config{}, err
		}
		cfg.MaxBodyBytes = n
	}
	if f := flags.Lookup("shutdown-timeout"); f != nil && f.Changed {
		d, err := flags.GetDuration("shutdown-timeout")
		if err != nil {
			return Config{}, err
		}
		cfg.ShutdownTimeout = d
	}
	return cfg, nil
}

// newLogger builds the process logger. Output goes to w so that stdio mode
// can keep stdout clean.
func (c Config) newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.LogFormat) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", c.LogFormat)
	}
}
