package imageprovider

import (
	"fmt"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/tphakala/codeseek/internal/conf"
	"github.com/tphakala/codeseek/internal/errors"
)

// NewChain builds the enabled providers of settings in configured order.
// Unknown kinds and worker entries without a URL are configuration errors.
func NewChain(settings *conf.CoverSettings, opts *Options) ([]CoverProvider, error) {
	if opts == nil {
		opts = &Options{}
	}
	shared := *opts
	if shared.Timeout <= 0 {
		shared.Timeout = settings.LookupTimeout
	}
	if shared.Inflight == nil && settings.MaxInflight > 0 {
		shared.Inflight = semaphore.NewWeighted(int64(settings.MaxInflight))
	}

	var chain []CoverProvider
	for i := range settings.Providers {
		ps := &settings.Providers[i]
		if !ps.Enabled {
			continue
		}
		provider, err := NewProvider(ps, &shared)
		if err != nil {
			return nil, err
		}
		chain = append(chain, provider)
	}
	return chain, nil
}

// NewProvider builds a single provider from its settings.
func NewProvider(ps *conf.ProviderSettings, opts *Options) (CoverProvider, error) {
	name := ps.DisplayName()
	limiter := newLimiter(ps.RateLimit, ps.Burst)

	switch ps.Kind {
	case conf.ProviderWorker:
		if ps.URL == "" {
			return nil, configError(fmt.Errorf("provider %s: worker requires a url", name))
		}
		return NewWorkerProvider(name, ps.URL, limiter, opts), nil
	case conf.ProviderDMM:
		return NewDMMProvider(name, ps.URL, limiter, opts), nil
	case conf.ProviderJavDB:
		return NewJavDBProvider(name, ps.URL, limiter, opts), nil
	case conf.ProviderSehuatang:
		return NewSehuatangProvider(name, ps.URL, limiter, opts), nil
	case conf.ProviderDMMDetail:
		return NewDMMDetailProvider(name, ps.URL, limiter, opts), nil
	default:
		return nil, configError(fmt.Errorf("provider %s: unknown kind %q", name, ps.Kind))
	}
}

// newLimiter returns nil for an unlimited provider.
func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func configError(err error) error {
	return errors.New(err).
		Component("imageprovider").
		Category(errors.CategoryConfiguration).
		Build()
}
