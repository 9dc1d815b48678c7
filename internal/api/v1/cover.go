package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/codeseek/internal/errors"
)

// initCoverRoutes registers the cover routes
func (c *Controller) initCoverRoutes() {
	c.Group.GET("/cover/:code", c.HandleCover)
	c.Group.GET("/cache/stats", c.HandleCacheStats)
}

// CoverResponse is the reply of the cover endpoint.
type CoverResponse struct {
	Code string `json:"code"`
	URL  string `json:"url"`
}

// HandleCover resolves the cover of a code through the cache and the provider chain.
func (c *Controller) HandleCover(ctx echo.Context) error {
	code, err := c.codeParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid code", http.StatusBadRequest)
	}

	url, ok := c.Covers.Resolve(ctx.Request().Context(), code)
	if !ok {
		return c.HandleError(ctx, errors.NewStd("no cover found"), "No cover found for "+code, http.StatusNotFound)
	}

	ctx.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return ctx.JSON(http.StatusOK, CoverResponse{Code: code, URL: url})
}

// HandleCacheStats reports cover cache statistics.
func (c *Controller) HandleCacheStats(ctx echo.Context) error {
	if c.Cache == nil {
		return c.HandleError(ctx, nil, "Cover cache disabled", http.StatusNotFound)
	}
	return ctx.JSON(http.StatusOK, c.Cache.Stats())
}
