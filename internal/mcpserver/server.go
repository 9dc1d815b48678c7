// Package mcpserver exposes code search, cover resolution and
// recommendations as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tphakala/codeseek/internal/record"
	"github.com/tphakala/codeseek/internal/render"
	"github.com/tphakala/codeseek/internal/search"
)

// Searcher is the search surface the tools use.
type Searcher interface {
	Search(ctx context.Context, code string) ([]record.Hit, error)
	Recommend(ctx context.Context, categories search.Categories, arg string, n int) (*search.Recommendation, error)
}

// Covers picks and resolves cover images.
type Covers interface {
	Resolve(ctx context.Context, code string) (string, bool)
	CoverFor(ctx context.Context, hit record.Hit, code string) string
}

// Config holds the dependencies of the tool handlers.
type Config struct {
	Name          string
	Version       string
	Searcher      Searcher
	Covers        Covers
	Categories    search.Categories
	SampleSize    int
	MaxCodeLength int
}

// CreateServer creates the MCP server with all tools registered.
func CreateServer(cfg Config) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, nil)

	h := &handlers{cfg: cfg}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_code",
		Description: "Search every catalog collection for records matching a catalog code exactly",
	}, h.searchCode)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_cover",
		Description: "Resolve a validated cover image URL for a catalog code",
	}, h.resolveCover)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "recommend",
		Description: "Return random records from a recommendation category",
	}, h.recommend)

	return server
}

// Run serves the MCP server on transport until ctx is done or the client disconnects.
func Run(ctx context.Context, server *mcp.Server, transport mcp.Transport) error {
	if transport == nil {
		transport = &mcp.StdioTransport{}
	}
	return server.Run(ctx, transport)
}

// CodeArgument is the input of the code based tools.
type CodeArgument struct {
	Code string `json:"code" jsonschema:"Catalog code, e.g. ABC-123"`
}

// CategoryArgument is the input of the recommend tool.
type CategoryArgument struct {
	Category string `json:"category" jsonschema:"Recommendation category name or part of it"`
}

type handlers struct {
	cfg Config
}

func (h *handlers) validCode(code string) (string, *mcp.CallToolResult) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", errorResult("Code cannot be empty")
	}
	if h.cfg.MaxCodeLength > 0 && len([]rune(code)) > h.cfg.MaxCodeLength {
		return "", errorResult(fmt.Sprintf("Code exceeds %d characters", h.cfg.MaxCodeLength))
	}
	return code, nil
}

func (h *handlers) searchCode(ctx context.Context, _ *mcp.CallToolRequest, args CodeArgument) (*mcp.CallToolResult, any, error) {
	code, invalid := h.validCode(args.Code)
	if invalid != nil {
		return invalid, nil, nil
	}

	hits, err := h.cfg.Searcher.Search(ctx, code)
	if err != nil {
		return errorResult(fmt.Sprintf("Search failed, try again later: %s", err)), nil, nil
	}

	if len(hits) == 0 {
		text := render.PlainText(render.NotFound(code))
		if url, ok := h.cfg.Covers.Resolve(ctx, code); ok {
			text += "\nCover: " + url
		}
		return textResult(text), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d record(s) for %s\n", len(hits), code)
	for _, hit := range hits {
		sb.WriteString("\n")
		sb.WriteString(render.PlainText(render.Caption(hit)))
		if cover := h.cfg.Covers.CoverFor(ctx, hit, code); cover != "" {
			sb.WriteString("\nCover: " + cover)
		}
		sb.WriteString("\n")
	}
	return textResult(sb.String()), nil, nil
}

func (h *handlers) resolveCover(ctx context.Context, _ *mcp.CallToolRequest, args CodeArgument) (*mcp.CallToolResult, any, error) {
	code, invalid := h.validCode(args.Code)
	if invalid != nil {
		return invalid, nil, nil
	}

	url, ok := h.cfg.Covers.Resolve(ctx, code)
	if !ok {
		return textResult("No cover found for " + code), nil, nil
	}
	return textResult(url), nil, nil
}

func (h *handlers) recommend(ctx context.Context, _ *mcp.CallToolRequest, args CategoryArgument) (*mcp.CallToolResult, any, error) {
	rec, err := h.cfg.Searcher.Recommend(ctx, h.cfg.Categories, args.Category, h.cfg.SampleSize)
	if err != nil {
		if search.IsUnknownCategory(err) {
			return errorResult("Unknown category, use one of: " + strings.Join(h.cfg.Categories.Names(), ", ")), nil, nil
		}
		return errorResult(fmt.Sprintf("Recommendation failed: %s", err)), nil, nil
	}
	if len(rec.Hits) == 0 {
		return textResult(fmt.Sprintf("%s has no records", rec.Category)), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d random record(s) from %s\n", len(rec.Hits), rec.Category)
	for _, hit := range rec.Hits {
		sb.WriteString("\n")
		sb.WriteString(render.PlainText(render.RecommendCaption(hit)))
		if cover := h.cfg.Covers.CoverFor(ctx, hit, ""); cover != "" {
			sb.WriteString("\nCover: " + cover)
		}
		sb.WriteString("\n")
	}
	return textResult(sb.String()), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
