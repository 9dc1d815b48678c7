// Package render turns search results into render instructions and delivers
// them through a chat front-end with a remote, local and text-only fallback.
package render

import (
	"context"

	"github.com/tphakala/codeseek/internal/logger"
	"github.com/tphakala/codeseek/internal/record"
)

// Kind is the type of a render instruction.
type Kind string

const (
	KindText  Kind = "text"
	KindPhoto Kind = "photo"
)

// ImageSource locates the image of a photo instruction. Exactly one of the
// fields is set.
type ImageSource struct {
	RemoteURL string `json:"remote_url,omitempty"`
	LocalPath string `json:"local_path,omitempty"`
}

// Instruction is one message for the front-end to deliver.
type Instruction struct {
	Kind    Kind        `json:"kind"`
	Caption string      `json:"caption"`
	Image   ImageSource `json:"image,omitzero"`
}

func textInstruction(caption string) Instruction {
	return Instruction{Kind: KindText, Caption: caption}
}

func photoInstruction(caption, url string) Instruction {
	if url == "" {
		return textInstruction(caption)
	}
	return Instruction{Kind: KindPhoto, Caption: caption, Image: ImageSource{RemoteURL: url}}
}

// HitSearcher runs the fan-out search for a code.
type HitSearcher interface {
	Search(ctx context.Context, code string) ([]record.Hit, error)
}

// CoverResolver resolves a code to a validated cover URL.
type CoverResolver interface {
	Resolve(ctx context.Context, code string) (string, bool)
}

// Pipeline combines the fan-out search with cover resolution per request.
type Pipeline struct {
	searcher HitSearcher
	resolver CoverResolver
	log      logger.Logger
}

// NewPipeline returns a pipeline. A nil resolver disables cover lookups.
func NewPipeline(searcher HitSearcher, resolver CoverResolver) *Pipeline {
	return &Pipeline{
		searcher: searcher,
		resolver: resolver,
		log:      logger.Global().Module("render"),
	}
}

// Lookup searches code and renders one instruction per hit. Without hits a
// single not found instruction is returned, with a cover when one resolves.
func (p *Pipeline) Lookup(ctx context.Context, code string) ([]Instruction, error) {
	hits, err := p.searcher.Search(ctx, code)
	if err != nil {
		return nil, err
	}

	if len(hits) == 0 {
		p.log.Debug("no local records", logger.String("code", code))
		return []Instruction{p.Missing(ctx, code)}, nil
	}
	return p.Hits(ctx, code, hits), nil
}

// Missing renders the not found notice for code, with a cover when one resolves.
func (p *Pipeline) Missing(ctx context.Context, code string) Instruction {
	url, _ := p.Resolve(ctx, code)
	return photoInstruction(NotFound(code), url)
}

// Hits renders search hits for the query code.
func (p *Pipeline) Hits(ctx context.Context, code string, hits []record.Hit) []Instruction {
	out := make([]Instruction, 0, len(hits))
	for _, hit := range hits {
		out = append(out, photoInstruction(Caption(hit), p.CoverFor(ctx, hit, code)))
	}
	return out
}

// Recommendations renders sampled records with the short caption.
func (p *Pipeline) Recommendations(ctx context.Context, hits []record.Hit) []Instruction {
	out := make([]Instruction, 0, len(hits))
	for _, hit := range hits {
		out = append(out, photoInstruction(RecommendCaption(hit), p.CoverFor(ctx, hit, "")))
	}
	return out
}

// CoverFor picks the cover of a hit: the embedded image reference, then the
// resolver result for code, or for the record code when code is empty.
func (p *Pipeline) CoverFor(ctx context.Context, hit record.Hit, code string) string {
	if img := hit.Record.Image(); img != "" {
		return img
	}
	if code == "" {
		code = hit.Record.Code()
	}
	url, _ := p.Resolve(ctx, code)
	return url
}

// Resolve resolves a cover for code. A pipeline without resolver finds none.
func (p *Pipeline) Resolve(ctx context.Context, code string) (string, bool) {
	if p.resolver == nil || code == "" {
		return "", false
	}
	return p.resolver.Resolve(ctx, code)
}
