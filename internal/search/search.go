// Package search runs catalog code queries across every collection of the
// record store concurrently.
package search

import (
	"context"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/codeseek/internal/datastore"
	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/logger"
	"github.com/tphakala/codeseek/internal/observability/metrics"
	"github.com/tphakala/codeseek/internal/record"
)

// Searcher enumerates collections and fans queries out over them.
type Searcher struct {
	store        datastore.Querier
	exclude      map[string]struct{}
	concurrency  int
	queryTimeout time.Duration
	metrics      *metrics.SearchMetrics
	log          logger.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithExclude sets the collections that are never searched.
func WithExclude(names ...string) Option {
	return func(s *Searcher) {
		for _, name := range names {
			s.exclude[name] = struct{}{}
		}
	}
}

// WithConcurrency bounds the number of collections queried at once. Zero or
// less means unbounded.
func WithConcurrency(n int) Option {
	return func(s *Searcher) { s.concurrency = n }
}

// WithQueryTimeout bounds each per-collection query.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Searcher) { s.queryTimeout = d }
}

// WithMetrics records search metrics.
func WithMetrics(m *metrics.SearchMetrics) Option {
	return func(s *Searcher) { s.metrics = m }
}

// WithLogger overrides the module logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Searcher) { s.log = l }
}

// New returns a Searcher over store.
func New(store datastore.Querier, opts ...Option) *Searcher {
	s := &Searcher{
		store:   store,
		exclude: make(map[string]struct{}),
		log:     logger.Global().Module("search"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collections returns every collection of the store minus the exclusion set.
// An empty store yields an empty list. Failing to reach the store is returned
// to the caller since no search is possible without it.
func (s *Searcher) Collections(ctx context.Context) ([]string, error) {
	names, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, errors.New(err).
			Component("search").
			Category(errors.CategoryDatabase).
			Context("operation", "list_collections").
			Build()
	}

	return slices.DeleteFunc(names, func(name string) bool {
		_, excluded := s.exclude[name]
		return excluded
	}), nil
}

// Search queries every collection for code and merges the hits. A failing
// collection is logged and contributes nothing. Hits of one collection keep the
// store's order; collections are merged in enumeration order.
//
// The only errors returned are enumeration failures and cancellation of ctx.
func (s *Searcher) Search(ctx context.Context, code string) ([]record.Hit, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	start := time.Now()
	hits, err := s.fanOut(ctx, "search", func(ctx context.Context, collection string) ([]record.Record, error) {
		return s.store.FindByCode(ctx, collection, code)
	})
	if err != nil {
		return hits, err
	}

	s.metrics.ObserveSearch("search", time.Since(start), len(hits))
	s.log.Debug("search completed",
		logger.String("code", code),
		logger.Int("hits", len(hits)),
		logger.Duration("duration", time.Since(start)))
	return hits, nil
}

// SearchAll searches each keyword in turn and concatenates the hits.
func (s *Searcher) SearchAll(ctx context.Context, keywords []string) ([]record.Hit, error) {
	var all []record.Hit
	for _, keyword := range keywords {
		hits, err := s.Search(ctx, keyword)
		if err != nil {
			return all, err
		}
		all = append(all, hits...)
	}
	return all, nil
}

// Sample returns up to n random records of one collection.
func (s *Searcher) Sample(ctx context.Context, collection string, n int) ([]record.Hit, error) {
	start := time.Now()
	records, err := s.store.Sample(ctx, collection, n)
	if err != nil {
		return nil, errors.New(err).
			Component("search").
			Category(errors.CategoryDatabase).
			Context("operation", "sample").
			Context("collection", collection).
			Build()
	}

	hits := make([]record.Hit, len(records))
	for i, rec := range records {
		hits[i] = record.Hit{Collection: collection, Record: rec}
	}
	s.metrics.ObserveSearch("sample", time.Since(start), len(hits))
	return hits, nil
}

type queryFunc func(ctx context.Context, collection string) ([]record.Record, error)

// fanOut runs query once per collection and joins all results after every
// query settled. Per-collection errors never abort the group.
func (s *Searcher) fanOut(ctx context.Context, operation string, query queryFunc) ([]record.Hit, error) {
	collections, err := s.Collections(ctx)
	if err != nil {
		return nil, err
	}
	if len(collections) == 0 {
		return nil, nil
	}

	results := make([][]record.Record, len(collections))

	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, collection := range collections {
		g.Go(func() error {
			qctx := ctx
			if s.queryTimeout > 0 {
				var cancel context.CancelFunc
				qctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
				defer cancel()
			}

			records, err := query(qctx, collection)
			if err != nil {
				s.metrics.RecordCollectionFailure(collection)
				s.log.Warn("collection query failed",
					logger.String("operation", operation),
					logger.String("collection", collection),
					logger.Error(err))
				return nil
			}
			results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	var hits []record.Hit
	for i, records := range results {
		for _, rec := range records {
			hits = append(hits, record.Hit{Collection: collections[i], Record: rec})
		}
	}

	if err := ctx.Err(); err != nil {
		return hits, errors.New(err).
			Component("search").
			Category(errors.CategoryCancellation).
			Context("operation", operation).
			Build()
	}
	return hits, nil
}
