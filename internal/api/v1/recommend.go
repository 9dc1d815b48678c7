package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/codeseek/internal/render"
	"github.com/tphakala/codeseek/internal/search"
)

// initRecommendRoutes registers the recommendation routes
func (c *Controller) initRecommendRoutes() {
	c.Group.GET("/categories", c.HandleCategories)
	c.Group.GET("/recommend/:category", c.HandleRecommend)
}

// RecommendResponse is the reply of the recommendation endpoint.
type RecommendResponse struct {
	Category   string        `json:"category"`
	Collection string        `json:"collection"`
	Hits       []HitResponse `json:"hits"`
}

// HandleCategories lists the recommendation categories.
func (c *Controller) HandleCategories(ctx echo.Context) error {
	categories := c.categories()
	return ctx.JSON(http.StatusOK, map[string]any{"categories": categories.Names()})
}

// HandleRecommend samples random records of a category.
func (c *Controller) HandleRecommend(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	rec, err := c.Searcher.Recommend(reqCtx, c.categories(), ctx.Param("category"), c.Settings.Recommend.SampleSize)
	if search.IsUnknownCategory(err) {
		return c.HandleError(ctx, err,
			"Unknown category, use one of: "+strings.Join(c.categories().Names(), ", "), http.StatusNotFound)
	}
	if err != nil {
		return c.HandleError(ctx, err, "Recommendation failed", statusFor(err))
	}

	resp := RecommendResponse{
		Category:   rec.Category,
		Collection: rec.Collection,
		Hits:       make([]HitResponse, 0, len(rec.Hits)),
	}
	for _, hit := range rec.Hits {
		resp.Hits = append(resp.Hits, HitResponse{
			Collection: hit.Collection,
			Record:     hit.Record,
			Cover:      c.Covers.CoverFor(reqCtx, hit, ""),
			Text:       render.PlainText(render.RecommendCaption(hit)),
		})
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (c *Controller) categories() search.Categories {
	return search.Categories(c.Settings.Recommend.Categories)
}
