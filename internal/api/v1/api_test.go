package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/codeseek/internal/conf"
	"github.com/tphakala/codeseek/internal/covercache"
	"github.com/tphakala/codeseek/internal/datastore"
	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/record"
	"github.com/tphakala/codeseek/internal/search"
)

type mockSearcher struct {
	hits        map[string][]record.Hit
	collections []string
	err         error
	sample      []record.Hit
}

func (m *mockSearcher) Search(_ context.Context, code string) ([]record.Hit, error) {
	return m.hits[code], m.err
}

func (m *mockSearcher) Collections(context.Context) ([]string, error) {
	return m.collections, m.err
}

func (m *mockSearcher) Recommend(_ context.Context, categories search.Categories, arg string, n int) (*search.Recommendation, error) {
	name, collection, ok := categories.Match(arg)
	if !ok {
		return nil, errors.New(search.ErrUnknownCategory).Category(errors.CategoryNotFound).Build()
	}
	return &search.Recommendation{Category: name, Collection: collection, Hits: m.sample[:min(n, len(m.sample))]}, nil
}

type mockCovers struct {
	urls map[string]string
}

func (m *mockCovers) Resolve(_ context.Context, code string) (string, bool) {
	url, ok := m.urls[code]
	return url, ok
}

func (m *mockCovers) CoverFor(ctx context.Context, hit record.Hit, code string) string {
	if img := hit.Record.Image(); img != "" {
		return img
	}
	if code == "" {
		code = hit.Record.Code()
	}
	url, _ := m.Resolve(ctx, code)
	return url
}

type mockStats struct{}

func (mockStats) Stats() covercache.Stats {
	return covercache.Stats{Path: "cache.json", Entries: 3, Capacity: 1000, TTL: "24h0m0s"}
}

func setupTestController(t *testing.T, searcher *mockSearcher) *echo.Echo {
	t.Helper()

	settings := &conf.Settings{}
	settings.Bot.MaxCodeLength = 50
	settings.Recommend.SampleSize = 2
	settings.Recommend.Categories = map[string]string{"VR": "vr_video", "4K": "4k_video"}

	e := echo.New()
	covers := &mockCovers{urls: map[string]string{"ZZZ-001": "https://img/z.jpg", "AAA-001": "https://img/a.jpg"}}
	New(e, settings, searcher, covers, mockStats{})
	return e
}

func doGet(t *testing.T, e *echo.Echo, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, path, http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch(t *testing.T) {
	t.Parallel()
	t.Attr("component", "search")

	e := setupTestController(t, &mockSearcher{hits: map[string][]record.Hit{
		"ABC-123": {{Collection: "X", Record: record.Record{"number": "ABC-123", "img": "http://img/1.jpg"}}},
	}})

	rec := doGet(t, e, "/api/v1/search/ABC-123")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Found)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "http://img/1.jpg", resp.Hits[0].Cover)
	assert.Equal(t, "X", resp.Hits[0].Collection)
	assert.Contains(t, resp.Hits[0].Text, "ABC-123")
	assert.NotContains(t, resp.Hits[0].Text, "<b>")
}

func TestHandleSearchNotFoundStillResolvesCover(t *testing.T) {
	t.Parallel()

	e := setupTestController(t, &mockSearcher{})

	rec := doGet(t, e, "/api/v1/search/ZZZ-001")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Found)
	assert.Empty(t, resp.Hits)
	assert.Equal(t, "https://img/z.jpg", resp.Cover)
}

func TestHandleSearchErrors(t *testing.T) {
	t.Parallel()

	storeDown := errors.New(datastore.ErrStoreUnavailable).Category(errors.CategoryDatabase).Build()

	tests := []struct {
		name     string
		searcher *mockSearcher
		path     string
		want     int
	}{
		{"code too long", &mockSearcher{}, "/api/v1/search/" + strings.Repeat("A", 51), http.StatusBadRequest},
		{"blank code", &mockSearcher{}, "/api/v1/search/%20", http.StatusBadRequest},
		{"store unavailable", &mockSearcher{err: storeDown}, "/api/v1/search/ABC-123", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := doGet(t, setupTestController(t, tt.searcher), tt.path)
			assert.Equal(t, tt.want, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Code)
			assert.Len(t, resp.CorrelationID, 8)
		})
	}
}

func TestHandleCover(t *testing.T) {
	t.Parallel()

	e := setupTestController(t, &mockSearcher{})

	rec := doGet(t, e, "/api/v1/cover/ZZZ-001")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp CoverResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, CoverResponse{Code: "ZZZ-001", URL: "https://img/z.jpg"}, resp)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get(echo.HeaderCacheControl))

	rec = doGet(t, e, "/api/v1/cover/ZZZ-000")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRecommend(t *testing.T) {
	t.Parallel()

	e := setupTestController(t, &mockSearcher{sample: []record.Hit{
		{Collection: "vr_video", Record: record.Record{"number": "AAA-001", "magnet": "magnet:?xt=1"}},
		{Collection: "vr_video", Record: record.Record{"number": "AAA-002"}},
		{Collection: "vr_video", Record: record.Record{"number": "AAA-003"}},
	}})

	rec := doGet(t, e, "/api/v1/recommend/vr")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RecommendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VR", resp.Category)
	assert.Equal(t, "vr_video", resp.Collection)
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, "https://img/a.jpg", resp.Hits[0].Cover)
	assert.Empty(t, resp.Hits[1].Cover)

	rec = doGet(t, e, "/api/v1/recommend/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "Unknown category, use one of: 4K, VR", errResp.Message)
}

func TestHandleCategoriesAndStats(t *testing.T) {
	t.Parallel()

	e := setupTestController(t, &mockSearcher{})

	rec := doGet(t, e, "/api/v1/categories")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"categories":["4K","VR"]}`, rec.Body.String())

	rec = doGet(t, e, "/api/v1/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats covercache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Entries)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	rec := doGet(t, setupTestController(t, &mockSearcher{collections: []string{"a", "b"}}), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.InDelta(t, 2, body["collections"], 0)

	rec = doGet(t, setupTestController(t, &mockSearcher{err: errors.NewStd("down")}), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusBadRequest, statusFor(errors.ValidationError("bad")))
	assert.Equal(t, http.StatusNotFound, statusFor(errors.Newf("x").Category(errors.CategoryNotFound).Build()))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(errors.Join(datastore.ErrStoreUnavailable)))
	assert.Equal(t, http.StatusServiceUnavailable,
		statusFor(errors.Newf("cancelled").Category(errors.CategoryCancellation).Timing("search", time.Second).Build()))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.NewStd("boom")))
}
