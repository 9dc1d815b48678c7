// Package imageprovider implements the cover lookup providers. Each provider
// turns a catalog code into a candidate cover URL using one upstream site or
// service. Providers never return errors: any failure is logged and reported
// as no result.
package imageprovider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/sync/semaphore"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
	"golang.org/x/time/rate"

	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/httpclient"
	"github.com/tphakala/codeseek/internal/logger"
	"github.com/tphakala/codeseek/internal/observability/metrics"
)

const (
	// DefaultLookupTimeout bounds a single provider lookup, all hops included.
	DefaultLookupTimeout = 5 * time.Second

	// maxPageSize caps how much of a scraped page is read.
	maxPageSize = 4 << 20
)

// CoverProvider looks up a cover image URL for a catalog code.
type CoverProvider interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	// Lookup returns the cover URL and true, or "" and false when the
	// provider has no result for any reason.
	Lookup(ctx context.Context, code string) (string, bool)
}

// Options carries the dependencies shared by all providers.
type Options struct {
	Client   *httpclient.Client
	Timeout  time.Duration         // per lookup, defaults to DefaultLookupTimeout
	Inflight *semaphore.Weighted   // optional cap on requests in flight across providers
	Metrics  *metrics.CoverMetrics // optional
	Logger   logger.Logger
}

// base holds the behaviour shared by every provider: rate limiting, request
// bounding, page fetching and outcome reporting.
type base struct {
	name     string
	client   *httpclient.Client
	timeout  time.Duration
	limiter  *rate.Limiter
	inflight *semaphore.Weighted
	metrics  *metrics.CoverMetrics
	log      logger.Logger
}

func newBase(name string, opts *Options, limiter *rate.Limiter) base {
	b := base{
		name:     name,
		client:   opts.Client,
		timeout:  opts.Timeout,
		limiter:  limiter,
		inflight: opts.Inflight,
		metrics:  opts.Metrics,
		log:      opts.Logger,
	}
	if b.client == nil {
		b.client = httpclient.New(nil)
	}
	if b.timeout <= 0 {
		b.timeout = DefaultLookupTimeout
	}
	if b.log == nil {
		b.log = logger.Global().Module("imageprovider")
	}
	b.log = b.log.With(logger.String("provider", name))
	return b
}

// Name implements CoverProvider.
func (b *base) Name() string { return b.name }

// run executes find under the lookup timeout and converts its outcome into
// the CoverProvider result.
func (b *base) run(ctx context.Context, code string, find func(ctx context.Context, code string) (string, error)) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	found, err := find(ctx, code)
	switch {
	case err != nil:
		b.metrics.RecordProviderResult(b.name, metrics.OutcomeError)
		b.log.Debug("cover lookup failed",
			logger.String("code", code),
			logger.Duration("duration", time.Since(start)),
			logger.Error(err))
		return "", false
	case found == "":
		b.metrics.RecordProviderResult(b.name, metrics.OutcomeMiss)
		b.log.Debug("no cover found", logger.String("code", code))
		return "", false
	default:
		b.metrics.RecordProviderResult(b.name, metrics.OutcomeHit)
		b.log.Debug("cover candidate found",
			logger.String("code", code),
			logger.String("url", found),
			logger.Duration("duration", time.Since(start)))
		return found, true
	}
}

// get waits for the rate limiter and an in-flight slot, then performs a GET.
// Non-2xx responses are errors. The caller closes the body.
func (b *base) get(ctx context.Context, target, referer string) (*http.Response, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, errors.New(err).
				Component("imageprovider").
				Category(errors.CategoryLimit).
				Context("provider", b.name).
				Build()
		}
	}
	if b.inflight != nil {
		if err := b.inflight.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer b.inflight.Release(1)
	}

	var headers []httpclient.Header
	if referer != "" {
		headers = append(headers, httpclient.Referer(referer))
	}
	resp, err := b.client.Get(ctx, target, headers...)
	if err != nil {
		return nil, errors.New(err).
			Component("imageprovider").
			Category(errors.CategoryNetwork).
			Context("provider", b.name).
			Context("url", target).
			Build()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, errors.Newf("unexpected status %d", resp.StatusCode).
			Component("imageprovider").
			Category(errors.CategoryImageProvider).
			Context("provider", b.name).
			Context("url", target).
			Context("status", resp.StatusCode).
			Build()
	}
	return resp, nil
}

// fetchBody returns the body of a GET, capped at maxPageSize.
func (b *base) fetchBody(ctx context.Context, target, referer string) ([]byte, error) {
	resp, err := b.get(ctx, target, referer)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", target, err)
	}
	return body, nil
}

// fetchDocument fetches and parses an HTML page.
func (b *base) fetchDocument(ctx context.Context, target, referer string) (*html.Node, error) {
	resp, err := b.get(ctx, target, referer)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, errors.New(err).
			Component("imageprovider").
			Category(errors.CategoryFileParsing).
			Context("provider", b.name).
			Context("url", target).
			Build()
	}
	return doc, nil
}

// queryCode folds full-width characters to ASCII and trims the code for use
// in upstream queries.
func queryCode(code string) string {
	return strings.TrimSpace(width.Narrow.String(code))
}

var lowerCaser = cases.Lower(language.Und)

// compactCode is the lower-case code without separators, as used by DMM
// content ids.
func compactCode(code string) string {
	return lowerCaser.String(strings.ReplaceAll(queryCode(code), "-", ""))
}

// expandTemplate substitutes the escaped code into a URL template. Templates
// without a {code} placeholder get the code appended as a path segment.
func expandTemplate(template, code string) string {
	idx := strings.Index(template, "{code}")
	if idx < 0 {
		return strings.TrimSuffix(template, "/") + "/" + url.PathEscape(code)
	}
	if q := strings.IndexByte(template, '?'); q >= 0 && q < idx {
		return strings.ReplaceAll(template, "{code}", url.QueryEscape(code))
	}
	return strings.ReplaceAll(template, "{code}", url.PathEscape(code))
}

// absolutize resolves protocol-relative and root-relative references against origin.
func absolutize(ref, origin string) string {
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	case strings.HasPrefix(ref, "//"):
		return "https:" + ref
	case strings.HasPrefix(ref, "/"):
		return strings.TrimSuffix(origin, "/") + ref
	default:
		return strings.TrimSuffix(origin, "/") + "/" + ref
	}
}
