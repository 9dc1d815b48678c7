package cache

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/codeseek/internal/app"
	"github.com/tphakala/codeseek/internal/covercache"
	"github.com/tphakala/codeseek/internal/errors"
)

// Command creates the cover cache maintenance command.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the cover cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print cover cache statistics as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open(ctx)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(c.Stats()); err != nil {
				return fmt.Errorf("error encoding cache stats: %w", err)
			}
			return enc.Close()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Remove every cached cover",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open(ctx)
			if err != nil {
				return err
			}
			removed := c.Len()
			if err := c.Purge(); err != nil {
				return err
			}
			fmt.Printf("removed %d cached covers\n", removed)
			return nil
		},
	})

	return cmd
}

// open loads the cache file without wiring the rest of the application.
func open(ctx *app.Context) (*covercache.Cache, error) {
	settings := ctx.Settings.Cover.Cache
	c := covercache.New(settings.Path,
		covercache.WithTTL(settings.TTL),
		covercache.WithCapacity(settings.Capacity))
	if err := c.Load(); err != nil {
		if errors.Is(err, covercache.ErrCorrupt) {
			// purging a corrupt file is how it gets repaired
			return c, nil
		}
		return nil, err
	}
	return c, nil
}
