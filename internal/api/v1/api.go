// Package api implements the v1 JSON endpoints: code search, cover
// resolution, random recommendations and cover cache statistics.
package api

import (
	"context"
	"crypto/rand"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/codeseek/internal/conf"
	"github.com/tphakala/codeseek/internal/covercache"
	"github.com/tphakala/codeseek/internal/datastore"
	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/logger"
	"github.com/tphakala/codeseek/internal/record"
	"github.com/tphakala/codeseek/internal/search"
)

// healthCheckTimeout bounds the store probe of the health endpoint.
const healthCheckTimeout = 3 * time.Second

// Searcher is the search surface used by the handlers.
type Searcher interface {
	Search(ctx context.Context, code string) ([]record.Hit, error)
	Collections(ctx context.Context) ([]string, error)
	Recommend(ctx context.Context, categories search.Categories, arg string, n int) (*search.Recommendation, error)
}

// Covers picks and resolves cover images.
type Covers interface {
	Resolve(ctx context.Context, code string) (string, bool)
	CoverFor(ctx context.Context, hit record.Hit, code string) string
}

// CacheStats reports cover cache statistics.
type CacheStats interface {
	Stats() covercache.Stats
}

// Controller manages the API routes and handlers
type Controller struct {
	Group    *echo.Group
	Settings *conf.Settings
	Searcher Searcher
	Covers   Covers
	Cache    CacheStats

	startTime time.Time
	log       logger.Logger
}

// New creates the controller and registers its routes under /api/v1.
func New(e *echo.Echo, settings *conf.Settings, searcher Searcher, covers Covers, cache CacheStats) *Controller {
	c := &Controller{
		Group:     e.Group("/api/v1"),
		Settings:  settings,
		Searcher:  searcher,
		Covers:    covers,
		Cache:     cache,
		startTime: time.Now(),
		log:       logger.Global().Module("api"),
	}

	e.GET("/healthz", c.HealthCheck)
	c.initSearchRoutes()
	c.initCoverRoutes()
	c.initRecommendRoutes()
	return c
}

// HealthCheck reports whether the record store is reachable.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx.Request().Context(), healthCheckTimeout)
	defer cancel()

	status, code := "healthy", http.StatusOK
	collections, err := c.Searcher.Collections(probeCtx)
	if err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	uptime := time.Since(c.startTime)
	return ctx.JSON(code, map[string]any{
		"status":         status,
		"collections":    len(collections),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// codeParam validates the :code path parameter.
func (c *Controller) codeParam(ctx echo.Context) (string, error) {
	code := strings.TrimSpace(ctx.Param("code"))
	maxLen := c.Settings.Bot.MaxCodeLength
	switch {
	case code == "":
		return "", errors.ValidationError("code must not be empty")
	case maxLen > 0 && len([]rune(code)) > maxLen:
		return "", errors.Newf("code exceeds %d characters", maxLen).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	return code, nil
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs err and replies with an ErrorResponse.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	c.log.WithContext(ctx.Request().Context()).Error("API error",
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("status", code),
		logger.String("path", ctx.Path()),
		logger.String("ip", ctx.RealIP()),
		logger.Error(err))

	return ctx.JSON(code, resp)
}

// statusFor maps error categories to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, datastore.ErrStoreUnavailable),
		errors.IsCategory(err, errors.CategoryDatabase),
		errors.IsCategory(err, errors.CategoryCancellation):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
