package cover

import (
	"context"
	"strings"
	"time"

	"github.com/tphakala/codeseek/internal/httpclient"
	"github.com/tphakala/codeseek/internal/logger"
)

// DefaultValidateTimeout bounds an image probe.
const DefaultValidateTimeout = 5 * time.Second

// Validator confirms that a URL serves image content.
type Validator interface {
	IsImage(ctx context.Context, url string) bool
}

// HTTPValidator probes a URL with HEAD and accepts 2xx responses declaring
// an image/* content type. The body is never fetched.
type HTTPValidator struct {
	client  *httpclient.Client
	timeout time.Duration
	log     logger.Logger
}

// NewHTTPValidator returns a validator. A zero timeout uses DefaultValidateTimeout.
func NewHTTPValidator(client *httpclient.Client, timeout time.Duration) *HTTPValidator {
	if timeout <= 0 {
		timeout = DefaultValidateTimeout
	}
	return &HTTPValidator{
		client:  client,
		timeout: timeout,
		log:     logger.Global().Module("cover"),
	}
}

// IsImage implements Validator. Any failure yields false.
func (v *HTTPValidator) IsImage(ctx context.Context, url string) bool {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	resp, err := v.client.Head(ctx, url)
	if err != nil {
		v.log.Debug("image probe failed", logger.String("url", url), logger.Error(err))
		return false
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		v.log.Debug("image probe rejected",
			logger.String("url", url),
			logger.Int("status", resp.StatusCode),
			logger.String("content_type", contentType))
		return false
	}
	return true
}
