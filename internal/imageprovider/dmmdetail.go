package imageprovider

import (
	"context"

	"golang.org/x/time/rate"
)

const dmmDetailSearchTemplate = dmmOrigin + "/search/=/searchstr={code}/"

var (
	// dmmResultSelectors locate the first search result link.
	dmmResultSelectors = []string{".t-box .t-item a", ".box-searchlist .item a"}

	// dmmDetailImageSelectors are tried in order on the detail page.
	dmmDetailImageSelectors = []string{
		"#sample-video img",
		".sample-image img",
		".product-detail img",
		`[class*="image"] img`,
		`[class*="cover"] img`,
		`[class*="sample"] img`,
	}
)

// DMMDetailProvider searches DMM for the compact content id, follows the
// first result to its detail page and extracts the package image there.
type DMMDetailProvider struct {
	base
	template string
}

// NewDMMDetailProvider returns a two-hop DMM provider. An empty template uses
// the site wide search.
func NewDMMDetailProvider(name, template string, limiter *rate.Limiter, opts *Options) *DMMDetailProvider {
	if template == "" {
		template = dmmDetailSearchTemplate
	}
	return &DMMDetailProvider{base: newBase(name, opts, limiter), template: template}
}

// Lookup implements CoverProvider.
func (p *DMMDetailProvider) Lookup(ctx context.Context, code string) (string, bool) {
	return p.run(ctx, code, p.find)
}

func (p *DMMDetailProvider) find(ctx context.Context, code string) (string, error) {
	searchURL := expandTemplate(p.template, compactCode(code))
	doc, err := p.fetchDocument(ctx, searchURL, dmmOrigin+"/")
	if err != nil {
		return "", err
	}

	// a search without hits renders the not-found block
	if querySelector(doc, ".dmm404") != nil {
		return "", nil
	}

	var detailURL string
	for _, sel := range dmmResultSelectors {
		if href := firstAttr(querySelector(doc, sel), "href"); href != "" {
			detailURL = absolutize(href, dmmOrigin)
			break
		}
	}
	if detailURL == "" {
		return "", nil
	}

	detail, err := p.fetchDocument(ctx, detailURL, searchURL)
	if err != nil {
		return "", err
	}

	for _, sel := range dmmDetailImageSelectors {
		if src := firstAttr(querySelector(detail, sel), "src", "data-src"); src != "" {
			return absolutize(src, dmmOrigin), nil
		}
	}
	return "", nil
}
