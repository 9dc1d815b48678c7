package imageprovider

import (
	"bytes"
	"context"
	"strings"

	"github.com/antonholmquist/jason"
	"golang.org/x/time/rate"
)

// workerJSONKeys are tried in order when the worker answers with JSON.
var workerJSONKeys = []string{"url", "image", "cover", "img"}

// WorkerProvider asks a configured image service for the cover. The service
// answers with the URL as plain text or as a JSON object.
type WorkerProvider struct {
	base
	template string
}

// NewWorkerProvider returns a provider calling template with {code} substituted.
func NewWorkerProvider(name, template string, limiter *rate.Limiter, opts *Options) *WorkerProvider {
	return &WorkerProvider{base: newBase(name, opts, limiter), template: template}
}

// Lookup implements CoverProvider.
func (p *WorkerProvider) Lookup(ctx context.Context, code string) (string, bool) {
	return p.run(ctx, code, p.find)
}

func (p *WorkerProvider) find(ctx context.Context, code string) (string, error) {
	body, err := p.fetchBody(ctx, expandTemplate(p.template, queryCode(code)), "")
	if err != nil {
		return "", err
	}
	return parseWorkerResponse(body), nil
}

// parseWorkerResponse extracts an http(s) URL from a plain or JSON body.
func parseWorkerResponse(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	if body[0] == '{' {
		obj, err := jason.NewObjectFromBytes(body)
		if err != nil {
			return ""
		}
		for _, key := range workerJSONKeys {
			if s, err := obj.GetString(key); err == nil && isHTTPURL(s) {
				return strings.TrimSpace(s)
			}
		}
		return ""
	}

	if s := string(body); isHTTPURL(s) && !strings.ContainsAny(s, " \n\t<") {
		return s
	}
	return ""
}

func isHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
