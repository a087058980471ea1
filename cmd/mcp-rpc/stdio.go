package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ggoodman/mcp-rpc-go/stdio"
	"github.com/spf13/cobra"
)

func newStdioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve the declaration over stdin and stdout",
		Long: `Read one JSON-RPC message or batch per line from stdin and write one
response line to stdout. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd, os.Stderr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			h := stdio.NewHandler(rt.srv, stdio.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()), stdio.WithLogger(rt.log))
			err = h.Serve(ctx)
			if errors.Is(err, context.Canceled) {
				err = nil
			}
			return errors.Join(err, rt.shutdown(context.Background()))
		},
	}
}
