package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/codeseek/cmd/bot"
	"github.com/tphakala/codeseek/cmd/cache"
	"github.com/tphakala/codeseek/cmd/config"
	"github.com/tphakala/codeseek/cmd/mcp"
	"github.com/tphakala/codeseek/cmd/search"
	"github.com/tphakala/codeseek/cmd/serve"
	"github.com/tphakala/codeseek/cmd/version"
	"github.com/tphakala/codeseek/internal/app"
	"github.com/tphakala/codeseek/internal/conf"
	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "codeseek",
		Short:         "Catalog code search with cover art",
		Long:          "Search every catalog collection for a code and resolve its cover image, over Telegram, HTTP, MCP or the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, ctx); err != nil {
		panic(err)
	}

	versionCmd := version.Command(ctx)

	subcommands := []*cobra.Command{
		bot.Command(ctx),
		serve.Command(ctx),
		mcp.Command(ctx),
		search.Command(ctx),
		cache.Command(ctx),
		config.Command(ctx),
		versionCmd,
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version needs no configuration
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initialize(ctx)
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		errors.FlushSentry(2 * time.Second)
		_ = logger.Global().Close()
	}

	return rootCmd
}

// initialize loads the configuration and sets up logging and error telemetry.
func initialize(ctx *app.Context) error {
	settings, err := conf.Load(ctx.ConfigFile)
	if err != nil {
		return err
	}

	centralLogger, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(centralLogger)

	if settings.Sentry.Enabled {
		if err := errors.InitSentry(settings.Sentry.DSN, ctx.BuildInfo.Version()); err != nil {
			return err
		}
	}

	ctx.Settings = settings
	logger.Global().Module("main").Info("configuration loaded",
		logger.String("version", ctx.BuildInfo.Version()),
		logger.String("store", settings.Store.Driver),
		logger.Bool("debug", settings.Debug))
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, ctx *app.Context) error {
	rootCmd.PersistentFlags().StringVarP(&ctx.ConfigFile, "config", "c", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
