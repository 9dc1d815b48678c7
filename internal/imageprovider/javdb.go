package imageprovider

import (
	"context"

	"golang.org/x/time/rate"
)

const (
	javdbOrigin         = "https://www.javdb.com"
	javdbSearchTemplate = javdbOrigin + "/search?q={code}&f=all"
)

// JavDBProvider scrapes the JavDB search page. The first result cover is
// preferred, falling back to the page's Open Graph image.
type JavDBProvider struct {
	base
	template string
}

// NewJavDBProvider returns a JavDB search provider. An empty template uses
// the public search page.
func NewJavDBProvider(name, template string, limiter *rate.Limiter, opts *Options) *JavDBProvider {
	if template == "" {
		template = javdbSearchTemplate
	}
	return &JavDBProvider{base: newBase(name, opts, limiter), template: template}
}

// Lookup implements CoverProvider.
func (p *JavDBProvider) Lookup(ctx context.Context, code string) (string, bool) {
	return p.run(ctx, code, p.find)
}

func (p *JavDBProvider) find(ctx context.Context, code string) (string, error) {
	doc, err := p.fetchDocument(ctx, expandTemplate(p.template, queryCode(code)), javdbOrigin+"/")
	if err != nil {
		return "", err
	}

	cover := firstAttr(querySelector(doc, "img.video-cover"), "src", "data-src")
	if cover == "" {
		cover = firstAttr(querySelector(doc, `meta[property="og:image"]`), "content")
	}
	return absolutize(cover, javdbOrigin), nil
}
