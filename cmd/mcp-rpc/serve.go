package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ggoodman/mcp-rpc-go/mcphttp"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the declaration over HTTP",
		Long: `Serve the declaration as a single POST endpoint. Every request body is
one JSON-RPC message or a batch, and every response is a single JSON document.

The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Address to listen on (MCP_ADDR)")
	cmd.Flags().Int64("max-body-bytes", 0, "Maximum request body size (MCP_MAX_BODY_BYTES)")
	cmd.Flags().Duration("shutdown-timeout", 0, "Graceful shutdown timeout (MCP_SHUTDOWN_TIMEOUT)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := setup(cmd, os.Stderr)
	if err != nil {
		return err
	}

	handler := mcphttp.New(rt.srv,
		mcphttp.WithLogger(rt.log),
		mcphttp.WithMaxBodyBytes(rt.cfg.MaxBodyBytes),
	)
	server := &http.Server{
		Addr:              rt.cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		rt.log.Info("serve.listen", slog.String("addr", rt.cfg.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErrors:
		_ = rt.shutdown(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		rt.log.Info("serve.shutdown", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), rt.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Join(fmt.Errorf("shutdown: %w", err), rt.shutdown(ctx))
	}
	return rt.shutdown(ctx)
}
