// Package httpclient provides the shared HTTP client used to scrape cover
// providers, probe candidate images and download covers for local delivery.
package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeout applies to requests whose context carries no deadline.
	DefaultTimeout = 10 * time.Second

	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 4
	defaultIdleConnTimeout     = 90 * time.Second
	defaultHandshakeTimeout    = 10 * time.Second
	defaultDialTimeout         = 10 * time.Second

	// scraped sites serve error pages to clients that look like bots
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Observer is called once per request after the round trip. resp is nil when
// err is set.
type Observer func(req *http.Request, resp *http.Response, err error, elapsed time.Duration)

// Config configures a Client. Zero values select the defaults.
type Config struct {
	DefaultTimeout      time.Duration
	UserAgent           string
	MaxIdleConnsPerHost int
	Observer            Observer

	// Transport replaces the pooled transport, mainly for tests
	Transport http.RoundTripper
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:      DefaultTimeout,
		UserAgent:           defaultUserAgent,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
	}
}

// Client is safe for concurrent use.
type Client struct {
	client         *http.Client
	defaultTimeout time.Duration
	userAgent      string
	observe        Observer
}

// New returns a client for cfg. A nil cfg selects DefaultConfig.
func New(cfg *Config) *Client {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.DefaultTimeout > 0 {
			c.DefaultTimeout = cfg.DefaultTimeout
		}
		if cfg.UserAgent != "" {
			c.UserAgent = cfg.UserAgent
		}
		if cfg.MaxIdleConnsPerHost > 0 {
			c.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
		}
		c.Observer = cfg.Observer
		c.Transport = cfg.Transport
	}

	transport := c.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        defaultMaxIdleConns,
			MaxIdleConnsPerHost: c.MaxIdleConnsPerHost,
			IdleConnTimeout:     defaultIdleConnTimeout,
			TLSHandshakeTimeout: defaultHandshakeTimeout,
		}
	}

	return &Client{
		// timeouts come from the request context
		client:         &http.Client{Transport: transport},
		defaultTimeout: c.DefaultTimeout,
		userAgent:      c.UserAgent,
		observe:        c.Observer,
	}
}

// Do sends req bound to ctx. Without a deadline on ctx the default timeout
// applies. The caller closes the body when err is nil.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && c.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
		defer cancel()
	}
	req = req.WithContext(ctx)

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if c.observe != nil {
		c.observe(req, resp, err, time.Since(start))
	}
	return resp, err
}

// Get sends a GET request with optional extra headers.
func (c *Client) Get(ctx context.Context, url string, headers ...Header) (*http.Response, error) {
	return c.bodyless(ctx, http.MethodGet, url, headers)
}

// Head sends a HEAD request with optional extra headers.
func (c *Client) Head(ctx context.Context, url string, headers ...Header) (*http.Response, error) {
	return c.bodyless(ctx, http.MethodHead, url, headers)
}

// Header is a single request header.
type Header struct {
	Key   string
	Value string
}

// Referer returns a Referer header. Some image hosts refuse hotlinks without one.
func Referer(url string) Header {
	return Header{Key: "Referer", Value: url}
}

func (c *Client) bodyless(ctx context.Context, method, url string, headers []Header) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, method, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}
	return c.Do(ctx, req)
}

// UserAgent returns the User-Agent set on requests that carry none.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Close drops idle pooled connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
