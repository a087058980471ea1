// Command mcp-rpc serves the showcase declaration over HTTP or stdio and
// prints its discovery metadata.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mcp-rpc:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mcp-rpc",
		Short: "Stateless MCP JSON-RPC server",
		Long: `mcp-rpc serves a declared set of tools, prompts and resources as a
stateless MCP endpoint. Every request is answered synchronously.

Configuration is read from MCP_* environment variables; flags override them.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (MCP_LOG_LEVEL)")
	root.PersistentFlags().String("log-format", "", "Log format: json or text (MCP_LOG_FORMAT)")

	root.AddCommand(newServeCmd(), newStdioCmd(), newDefineCmd(), newListCmd())
	return root
}
