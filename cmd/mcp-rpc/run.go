package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/ggoodman/mcp-rpc-go/examples/showcase"
	"github.com/ggoodman/mcp-rpc-go/mcpservice"
	"github.com/spf13/cobra"
)

// runtime is the state shared by the serving commands.
type runtime struct {
	cfg      Config
	log      *slog.Logger
	srv      *mcpservice.Server
	shutdown func(context.Context) error
}

// setup loads configuration, builds the logger on logOut, starts telemetry
// export when enabled and compiles the showcase declaration.
func setup(cmd *cobra.Command, logOut io.Writer) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := cfg.newLogger(logOut)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: log, shutdown: func(context.Context) error { return nil }}

	if cfg.OTLP {
		shutdown, err := initTelemetry(cmd.Context())
		if err != nil {
			return nil, err
		}
		rt.shutdown = shutdown
	}

	rt.srv, err = showcase.New()
	if err != nil {
		_ = rt.shutdown(cmd.Context())
		return nil, err
	}
	return rt, nil
}
