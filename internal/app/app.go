// Package app wires the catalog search core from settings. Every front-end
// (bot, API, MCP, CLI) builds one App and closes it on exit.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/tphakala/codeseek/internal/conf"
	"github.com/tphakala/codeseek/internal/cover"
	"github.com/tphakala/codeseek/internal/covercache"
	"github.com/tphakala/codeseek/internal/datastore"
	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/httpclient"
	"github.com/tphakala/codeseek/internal/imageprovider"
	"github.com/tphakala/codeseek/internal/logger"
	"github.com/tphakala/codeseek/internal/notification"
	"github.com/tphakala/codeseek/internal/observability"
	"github.com/tphakala/codeseek/internal/privacy"
	"github.com/tphakala/codeseek/internal/render"
	"github.com/tphakala/codeseek/internal/search"
)

// App holds the shared components of every front-end.
type App struct {
	Settings  *conf.Settings
	Metrics   *observability.Metrics
	Store     *datastore.Lazy
	Searcher  *search.Searcher
	Covers    *covercache.Cache
	Resolver  *cover.Resolver
	Pipeline  *render.Pipeline
	Deliverer *render.Deliverer
	Alerter   *notification.Alerter

	client *httpclient.Client
	log    logger.Logger
}

// New builds the application from settings without touching the store.
func New(settings *conf.Settings) (*App, error) {
	store, err := datastore.New(settings)
	if err != nil {
		return nil, err
	}
	return NewWithStore(settings, datastore.NewLazyFromStore(store))
}

// NewWithStore builds the application on an existing store handle.
func NewWithStore(settings *conf.Settings, store *datastore.Lazy) (*App, error) {
	log := logger.Global().Module("app")

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "create_metrics").
			Build()
	}

	alerter, err := notification.New(&settings.Alerts)
	if err != nil {
		return nil, err
	}
	store.OnUnavailable = alerter.StoreUnavailable

	client := httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.Cover.FetchTimeout,
		UserAgent:      settings.Cover.UserAgent,
		Observer: func(req *http.Request, resp *http.Response, err error, elapsed time.Duration) {
			m.Cover.RecordUpstreamRequest(req.URL.Host, resp, err)
			if err != nil {
				log.Debug("upstream request failed",
					logger.String("host", req.URL.Host),
					logger.Duration("elapsed", elapsed),
					logger.Error(privacy.WrapError(err)))
			}
		},
	})

	providers, err := imageprovider.NewChain(&settings.Cover, &imageprovider.Options{
		Client:  client,
		Timeout: settings.Cover.LookupTimeout,
		Metrics: m.Cover,
		Logger:  logger.Global().Module("imageprovider"),
	})
	if err != nil {
		client.Close()
		return nil, err
	}
	if len(providers) == 0 {
		log.Warn("no cover providers enabled, covers come from records and cache only")
	}

	covers := covercache.New(settings.Cover.Cache.Path,
		covercache.WithTTL(settings.Cover.Cache.TTL),
		covercache.WithCapacity(settings.Cover.Cache.Capacity),
		covercache.WithMetrics(m.Cover))
	if err := covers.Load(); err != nil {
		// a corrupt or unreadable cache only costs lookups
		log.Warn("starting with an empty cover cache", logger.Error(err))
	}

	validator := cover.NewHTTPValidator(client, settings.Cover.ValidateTimeout)
	resolver := cover.NewResolver(providers, covers, validator,
		cover.WithRetries(settings.Cover.Retries),
		cover.WithMetrics(m.Cover))

	searcher := search.New(store,
		search.WithExclude(settings.Store.Exclude...),
		search.WithConcurrency(settings.Store.Concurrency),
		search.WithQueryTimeout(settings.Store.QueryTimeout),
		search.WithMetrics(m.Search))

	fetcher := cover.NewFetcher(client, settings.Bot.SaveDir, settings.Cover.FetchTimeout)

	return &App{
		Settings:  settings,
		Metrics:   m,
		Store:     store,
		Searcher:  searcher,
		Covers:    covers,
		Resolver:  resolver,
		Pipeline:  render.NewPipeline(searcher, resolver),
		Deliverer: render.NewDeliverer(validator, fetcher, m.Cover),
		Alerter:   alerter,
		client:    client,
		log:       log,
	}, nil
}

// Start builds the application and connects the store.
func Start(ctx context.Context, settings *conf.Settings) (*App, error) {
	a, err := New(settings)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// Categories returns the configured recommendation categories.
func (a *App) Categories() search.Categories {
	return search.Categories(a.Settings.Recommend.Categories)
}

// Connect opens the record store. Front-ends treat a failure as fatal at startup.
func (a *App) Connect(ctx context.Context) error {
	if _, err := a.Store.Get(ctx); err != nil {
		return err
	}
	a.log.Info("record store connected", logger.String("driver", a.Settings.Store.Driver))
	return nil
}

// Close releases the store, pending alerts and idle HTTP connections.
func (a *App) Close() error {
	err := a.Store.Close()
	a.Alerter.Close()
	a.client.Close()
	if err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryDatabase).
			Context("operation", "close_store").
			Build()
	}
	return nil
}
