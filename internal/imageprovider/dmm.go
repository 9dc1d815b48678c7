package imageprovider

import (
	"context"

	"golang.org/x/time/rate"
)

const (
	dmmOrigin         = "https://www.dmm.co.jp"
	dmmSearchTemplate = dmmOrigin + "/digital/videoa/-/search/=/searchstr={code}/"
)

// DMMProvider scrapes the DMM video search results page and takes the first
// thumbnail.
type DMMProvider struct {
	base
	template string
}

// NewDMMProvider returns a DMM search provider. An empty template uses the
// public search page.
func NewDMMProvider(name, template string, limiter *rate.Limiter, opts *Options) *DMMProvider {
	if template == "" {
		template = dmmSearchTemplate
	}
	return &DMMProvider{base: newBase(name, opts, limiter), template: template}
}

// Lookup implements CoverProvider.
func (p *DMMProvider) Lookup(ctx context.Context, code string) (string, bool) {
	return p.run(ctx, code, p.find)
}

func (p *DMMProvider) find(ctx context.Context, code string) (string, error) {
	doc, err := p.fetchDocument(ctx, expandTemplate(p.template, queryCode(code)), dmmOrigin+"/")
	if err != nil {
		return "", err
	}
	return absolutize(firstAttr(querySelector(doc, ".tmb img"), "src", "data-src"), dmmOrigin), nil
}
