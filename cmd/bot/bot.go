package bot

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/codeseek/internal/app"
	"github.com/tphakala/codeseek/internal/conf"
	"github.com/tphakala/codeseek/internal/logger"
	"github.com/tphakala/codeseek/internal/notification"
	"github.com/tphakala/codeseek/internal/observability"
	"github.com/tphakala/codeseek/internal/session"
	"github.com/tphakala/codeseek/internal/telegram"
)

// Command creates the command running the Telegram front-end.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		Long:  "Long poll Telegram for messages and answer catalog code searches and recommendations.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, ctx)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}

	return cmd
}

func run(cmd *cobra.Command, ctx *app.Context) error {
	settings := ctx.Settings
	if err := conf.ValidateBotMode(settings); err != nil {
		return err
	}

	runCtx := cmd.Context()
	a, err := app.Start(runCtx, settings)
	if err != nil {
		return fmt.Errorf("record store unavailable: %w", err)
	}
	defer func() { _ = a.Close() }()

	api, err := telegram.NewAPI(settings.Bot.Token, settings.Debug)
	if err != nil {
		return err
	}

	b := telegram.New(api, telegram.Config{
		AllowedIDs:    settings.Bot.AllowedUserIDs(),
		Categories:    a.Categories(),
		SampleSize:    settings.Recommend.SampleSize,
		MaxCodeLength: settings.Bot.MaxCodeLength,
		PollTimeout:   settings.Bot.PollTimeout,
	}, telegram.Deps{
		Searcher:  a.Searcher,
		Pipeline:  a.Pipeline,
		Deliverer: a.Deliverer,
		Sessions:  session.New(settings.Bot.Session.TTL, settings.Bot.Session.Capacity, settings.Bot.PageSize),
	})

	logger.Global().Module("main").Info("bot connected", logger.String("username", api.Self.UserName))
	a.Alerter.Alert(notification.KindStartup, "codeseek: bot started",
		fmt.Sprintf("%s is serving as @%s", ctx.BuildInfo.String(), api.Self.UserName))

	g, gctx := errgroup.WithContext(runCtx)
	if settings.Metrics.Enabled {
		endpoint, err := observability.NewEndpoint(settings, a.Metrics)
		if err != nil {
			return err
		}
		g.Go(func() error { return endpoint.Run(gctx) })
	}
	g.Go(func() error { return b.Run(gctx) })
	return g.Wait()
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().Int("poll-timeout", viper.GetInt("bot.polltimeout"), "Long polling timeout in seconds")
	cmd.Flags().Int("page-size", viper.GetInt("bot.pagesize"), "Results per page of multi-keyword searches")
	cmd.Flags().Bool("metrics", viper.GetBool("metrics.enabled"), "Serve Prometheus metrics")
	cmd.Flags().String("metrics-listen", viper.GetString("metrics.listen"), "Listen address of the metrics endpoint")

	for key, flag := range map[string]string{
		"bot.polltimeout": "poll-timeout",
		"bot.pagesize":    "page-size",
		"metrics.enabled": "metrics",
		"metrics.listen":  "metrics-listen",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
	}
	return nil
}
