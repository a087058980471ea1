package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ggoodman/mcp-rpc-go/examples/showcase"
	"github.com/ggoodman/mcp-rpc-go/mcpservice"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newDefineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "define",
		Short: "Print the discovery metadata of the declaration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			srv, err := showcase.New()
			if err != nil {
				return err
			}
			return writeDefinitions(cmd.OutOrStdout(), srv.Define(), format)
		},
	}
	cmd.Flags().StringP("format", "f", "json", "Output format: json or yaml")
	return cmd
}

// writeDefinitions renders defs as indented JSON or as YAML. The YAML form is
// derived from the JSON encoding so both share field names and omissions.
func writeDefinitions(w io.Writer, defs mcpservice.Definitions, format string) error {
	b, err := json.MarshalIndent(defs, "", "  ")
	if err != nil {
		return err
	}
	switch format {
	case "json":
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	case "yaml", "yml":
		var doc any
		if err := json.Unmarshal(b, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (use json or yaml)", format)
	}
}
