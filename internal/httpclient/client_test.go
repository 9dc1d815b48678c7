package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		cfg := DefaultConfig()
		client := New(&cfg)

		require.NotNil(t, client)
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, defaultUserAgent, client.UserAgent())
	})

	t.Run("custom config", func(t *testing.T) {
		client := New(&Config{DefaultTimeout: 5 * time.Second, UserAgent: "TestAgent/1.0"})

		assert.Equal(t, 5*time.Second, client.defaultTimeout)
		assert.Equal(t, "TestAgent/1.0", client.UserAgent())
	})

	t.Run("nil config", func(t *testing.T) {
		client := New(nil)
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.NotEmpty(t, client.UserAgent())
	})
}

func TestGetSendsHeaders(t *testing.T) {
	client, mock := newMockClient(t, "CustomAgent/2.0")

	mock.RegisterResponder(http.MethodGet, "https://example.com/page",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "CustomAgent/2.0", req.Header.Get("User-Agent"))
			assert.Equal(t, "https://example.com/", req.Header.Get("Referer"))
			return httpmock.NewStringResponse(http.StatusOK, "success"), nil
		})

	resp, err := client.Get(t.Context(), "https://example.com/page", Referer("https://example.com/"))
	require.NoError(t, err)
	defer closeBody(t, resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "success", string(body))
	assert.Equal(t, 1, mock.GetTotalCallCount())
}

func TestHead(t *testing.T) {
	client, mock := newMockClient(t, "")

	mock.RegisterResponder(http.MethodHead, "https://img.example.com/a.jpg",
		httpmock.NewStringResponder(http.StatusOK, "").HeaderSet(http.Header{"Content-Type": {"image/jpeg"}}))

	resp, err := client.Head(t.Context(), "https://img.example.com/a.jpg")
	require.NoError(t, err)
	defer closeBody(t, resp)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
}

func TestDo_ContextCancellation(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, nil)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	resp, err := client.Get(ctx, server.URL)
	defer closeBody(t, resp)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_DefaultTimeout(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, &Config{DefaultTimeout: 100 * time.Millisecond})

	start := time.Now()
	resp, err := client.Get(context.Background(), server.URL)
	defer closeBody(t, resp)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDo_NilRequest(t *testing.T) {
	client := newTestClient(t, nil)
	resp, err := client.Do(t.Context(), nil) //nolint:bodyclose // nil response
	require.Error(t, err)
	assert.Nil(t, resp)
}

func TestDo_Observer(t *testing.T) {
	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodGet, "https://example.com/",
		httpmock.NewStringResponder(http.StatusTeapot, ""))

	var calls atomic.Int32
	client := newTestClient(t, &Config{
		Transport: mock,
		Observer: func(req *http.Request, resp *http.Response, err error, elapsed time.Duration) {
			assert.NoError(t, err)
			assert.Equal(t, "example.com", req.URL.Host)
			assert.Equal(t, http.StatusTeapot, resp.StatusCode)
			assert.GreaterOrEqual(t, elapsed, time.Duration(0))
			calls.Add(1)
		},
	})

	resp, err := client.Get(t.Context(), "https://example.com/")
	require.NoError(t, err)
	closeBody(t, resp)

	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_ObserverSeesTransportErrors(t *testing.T) {
	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodHead, "https://example.com/a.jpg",
		httpmock.NewErrorResponder(errors.New("connection reset")))

	var seen error
	client := newTestClient(t, &Config{
		Transport: mock,
		Observer: func(_ *http.Request, resp *http.Response, err error, _ time.Duration) {
			assert.Nil(t, resp)
			seen = err
		},
	})

	resp, err := client.Head(t.Context(), "https://example.com/a.jpg")
	closeBody(t, resp)
	require.Error(t, err)
	require.Error(t, seen)
	assert.Contains(t, seen.Error(), "connection reset")
}
