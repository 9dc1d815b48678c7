package serve

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/codeseek/internal/api"
	"github.com/tphakala/codeseek/internal/app"
)

// Command creates the command serving the HTTP JSON API.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long:  "Serve code search, cover resolution and recommendations as a JSON API, with Prometheus metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Start(cmd.Context(), ctx.Settings)
			if err != nil {
				return fmt.Errorf("record store unavailable: %w", err)
			}
			defer func() { _ = a.Close() }()

			server, err := api.New(ctx.Settings,
				api.WithSearcher(a.Searcher),
				api.WithCovers(a.Pipeline),
				api.WithCacheStats(a.Covers),
				api.WithMetrics(a.Metrics))
			if err != nil {
				return err
			}
			return server.Run(cmd.Context())
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("listen", viper.GetString("api.listen"), "Listen address of the HTTP API")

	if err := viper.BindPFlag("api.listen", cmd.Flags().Lookup("listen")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
