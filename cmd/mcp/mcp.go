package mcp

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/codeseek/internal/app"
	"github.com/tphakala/codeseek/internal/mcpserver"
)

// Command creates the command serving MCP tools on stdio.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools on stdio",
		Long:  "Expose search_code, resolve_cover and recommend as Model Context Protocol tools over stdin and stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := ctx.Settings
			a, err := app.Start(cmd.Context(), settings)
			if err != nil {
				return fmt.Errorf("record store unavailable: %w", err)
			}
			defer func() { _ = a.Close() }()

			server := mcpserver.CreateServer(mcpserver.Config{
				Name:          settings.Main.Name,
				Version:       ctx.BuildInfo.Version(),
				Searcher:      a.Searcher,
				Covers:        a.Pipeline,
				Categories:    a.Categories(),
				SampleSize:    settings.Recommend.SampleSize,
				MaxCodeLength: settings.Bot.MaxCodeLength,
			})
			return mcpserver.Run(cmd.Context(), server, nil)
		},
	}
}
