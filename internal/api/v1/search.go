package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/codeseek/internal/record"
	"github.com/tphakala/codeseek/internal/render"
)

// initSearchRoutes registers the search-related routes
func (c *Controller) initSearchRoutes() {
	c.Group.GET("/search/:code", c.HandleSearch)
	c.Group.GET("/collections", c.HandleCollections)
}

// HitResponse is one search hit with its cover and a plain text summary.
type HitResponse struct {
	Collection string        `json:"collection"`
	Record     record.Record `json:"record"`
	Cover      string        `json:"cover,omitempty"`
	Text       string        `json:"text"`
}

// SearchResponse defines the structure of the search API response
type SearchResponse struct {
	Code  string        `json:"code"`
	Found bool          `json:"found"`
	Hits  []HitResponse `json:"hits"`
	Cover string        `json:"cover,omitempty"` // best-effort cover when nothing was found
}

// HandleSearch searches every collection for a code.
func (c *Controller) HandleSearch(ctx echo.Context) error {
	code, err := c.codeParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid code", http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	hits, err := c.Searcher.Search(reqCtx, code)
	if err != nil {
		return c.HandleError(ctx, err, "Search failed, try again later", statusFor(err))
	}

	resp := SearchResponse{Code: code, Found: len(hits) > 0, Hits: make([]HitResponse, 0, len(hits))}
	for _, hit := range hits {
		resp.Hits = append(resp.Hits, HitResponse{
			Collection: hit.Collection,
			Record:     hit.Record,
			Cover:      c.Covers.CoverFor(reqCtx, hit, code),
			Text:       render.PlainText(render.Caption(hit)),
		})
	}
	if !resp.Found {
		resp.Cover, _ = c.Covers.Resolve(reqCtx, code)
	}

	return ctx.JSON(http.StatusOK, resp)
}

// HandleCollections lists the searchable collections.
func (c *Controller) HandleCollections(ctx echo.Context) error {
	collections, err := c.Searcher.Collections(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list collections", statusFor(err))
	}
	return ctx.JSON(http.StatusOK, map[string]any{"collections": collections})
}
