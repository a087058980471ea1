package main

import (
	"io"
	"strings"

	"github.com/ggoodman/mcp-rpc-go/examples/showcase"
	"github.com/ggoodman/mcp-rpc-go/mcpservice"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print a table of declared capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, err := showcase.New()
			if err != nil {
				return err
			}
			return writeTable(cmd.OutOrStdout(), srv.Define())
		},
	}
}

func writeTable(w io.Writer, defs mcpservice.Definitions) error {
	var rows [][]string
	for _, t := range defs.Tools {
		rows = append(rows, []string{"tool", t.Name, t.Description, ""})
	}
	for _, p := range defs.Prompts {
		args := make([]string, 0, len(p.Arguments))
		for _, a := range p.Arguments {
			name := a.Name
			if a.Required {
				name += "*"
			}
			args = append(args, name)
		}
		rows = append(rows, []string{"prompt", p.Name, p.Description, strings.Join(args, ", ")})
	}
	for _, r := range defs.Resources {
		rows = append(rows, []string{"resource", r.Name, r.Description, r.URI + " (" + r.MimeType + ")"})
	}

	table := tablewriter.NewWriter(w)
	table.Header("Kind", "Name", "Description", "Details")
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
