package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/codeseek/internal/app"
	"github.com/tphakala/codeseek/internal/conf"
)

// Command creates the command printing the effective configuration.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return conf.WriteYAML(os.Stdout, ctx.Settings)
		},
	}
}
