// Package cover resolves catalog codes to validated cover image URLs by
// querying the provider chain, and fetches cover bytes for local delivery.
package cover

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tphakala/codeseek/internal/imageprovider"
	"github.com/tphakala/codeseek/internal/logger"
	"github.com/tphakala/codeseek/internal/observability/metrics"
)

// Cache is the cover cache used by the resolver.
type Cache interface {
	Get(code string) (string, bool)
	Put(code, url string) error
}

// Resolver combines the provider chain, the validator and the cache.
type Resolver struct {
	providers []imageprovider.CoverProvider
	cache     Cache
	validator Validator
	retries   int
	metrics   *metrics.CoverMetrics
	log       logger.Logger

	flight singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRetries sets how many extra chain passes follow a failed one.
func WithRetries(n int) Option {
	return func(r *Resolver) {
		if n >= 0 {
			r.retries = n
		}
	}
}

// WithMetrics records resolver metrics.
func WithMetrics(m *metrics.CoverMetrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver returns a resolver over providers in priority order.
func NewResolver(providers []imageprovider.CoverProvider, cache Cache, validator Validator, opts ...Option) *Resolver {
	r := &Resolver{
		providers: providers,
		cache:     cache,
		validator: validator,
		retries:   2,
		log:       logger.Global().Module("cover"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retries returns the configured retry count.
func (r *Resolver) Retries() int { return r.retries }

// Resolve resolves code with the configured retry count.
func (r *Resolver) Resolve(ctx context.Context, code string) (string, bool) {
	return r.ResolveRetries(ctx, code, r.retries)
}

// ResolveRetries returns a validated cover URL for code, or false when none
// could be resolved. It makes at most retries+1 passes over the provider
// chain. Concurrent resolutions of the same code share one execution.
func (r *Resolver) ResolveRetries(ctx context.Context, code string, retries int) (string, bool) {
	if code == "" {
		return "", false
	}

	if r.cache != nil {
		if url, ok := r.cache.Get(code); ok {
			return url, true
		}
	}

	if len(r.providers) == 0 {
		return "", false
	}

	ch := r.flight.DoChan(code, func() (any, error) {
		// the shared resolution outlives a single impatient caller
		return r.resolve(context.WithoutCancel(ctx), code, retries), nil
	})

	select {
	case <-ctx.Done():
		return "", false
	case res := <-ch:
		url, _ := res.Val.(string)
		return url, url != ""
	}
}

func (r *Resolver) resolve(ctx context.Context, code string, retries int) string {
	start := time.Now()
	defer func() { r.metrics.ObserveResolve(time.Since(start)) }()

	for attempt := 0; attempt <= retries; attempt++ {
		r.metrics.RecordAttempt()

		provider, candidate := r.lookup(ctx, code)
		if candidate == "" {
			r.log.Debug("no cover candidate",
				logger.String("code", code),
				logger.Int("attempt", attempt+1))
			continue
		}

		if !r.validator.IsImage(ctx, candidate) {
			r.metrics.RecordProviderResult(provider, metrics.OutcomeRejected)
			r.log.Debug("cover candidate rejected",
				logger.String("code", code),
				logger.String("provider", provider),
				logger.String("url", candidate),
				logger.Int("attempt", attempt+1))
			continue
		}

		if r.cache != nil {
			if err := r.cache.Put(code, candidate); err != nil {
				r.log.Warn("failed to persist cover", logger.String("code", code), logger.Error(err))
			}
		}
		r.log.Info("cover resolved",
			logger.String("code", code),
			logger.String("provider", provider),
			logger.Int("attempts", attempt+1),
			logger.Duration("duration", time.Since(start)))
		return candidate
	}

	r.log.Info("no valid cover found",
		logger.String("code", code),
		logger.Int("attempts", retries+1))
	return ""
}

// lookup queries every provider concurrently, waits for all of them and
// returns the first non-empty result in chain order.
func (r *Resolver) lookup(ctx context.Context, code string) (provider, url string) {
	results := make([]string, len(r.providers))

	var wg sync.WaitGroup
	for i, p := range r.providers {
		wg.Go(func() {
			if found, ok := p.Lookup(ctx, code); ok {
				results[i] = found
			}
		})
	}
	wg.Wait()

	for i, found := range results {
		if found != "" {
			return r.providers[i].Name(), found
		}
	}
	return "", ""
}
