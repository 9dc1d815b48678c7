package imageprovider

import (
	"context"

	"golang.org/x/time/rate"
)

const (
	sehuatangOrigin         = "https://sehuatang.org"
	sehuatangSearchTemplate = sehuatangOrigin + "/search.php?mod=forum&srchtxt={code}"
)

// SehuatangProvider follows the first forum search result to its thread and
// takes the first image of the opening post.
type SehuatangProvider struct {
	base
	template string
}

// NewSehuatangProvider returns a forum provider. An empty template uses the
// public forum search.
func NewSehuatangProvider(name, template string, limiter *rate.Limiter, opts *Options) *SehuatangProvider {
	if template == "" {
		template = sehuatangSearchTemplate
	}
	return &SehuatangProvider{base: newBase(name, opts, limiter), template: template}
}

// Lookup implements CoverProvider.
func (p *SehuatangProvider) Lookup(ctx context.Context, code string) (string, bool) {
	return p.run(ctx, code, p.find)
}

func (p *SehuatangProvider) find(ctx context.Context, code string) (string, error) {
	searchURL := expandTemplate(p.template, queryCode(code))
	doc, err := p.fetchDocument(ctx, searchURL, sehuatangOrigin+"/")
	if err != nil {
		return "", err
	}

	href := firstAttr(querySelector(doc, ".xs3 a"), "href")
	if href == "" {
		return "", nil
	}

	post, err := p.fetchDocument(ctx, absolutize(href, sehuatangOrigin), searchURL)
	if err != nil {
		return "", err
	}

	// lazy loaded attachments keep the real source in "file"
	img := firstAttr(querySelector(post, "#postlist .t_f img"), "file", "src")
	return absolutize(img, sehuatangOrigin), nil
}
