package cover

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/httpclient"
	"github.com/tphakala/codeseek/internal/logger"
)

const (
	// DefaultFetchTimeout bounds a full image download.
	DefaultFetchTimeout = 10 * time.Second

	// maxImageSize caps downloaded covers.
	maxImageSize = 20 << 20
)

var imageExtPattern = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|webp)`)

// Fetcher downloads cover images into transient local files. It is the
// fallback for hosts that reject probes or remote attachment.
type Fetcher struct {
	client  *httpclient.Client
	dir     string
	timeout time.Duration
	log     logger.Logger
}

// NewFetcher returns a fetcher writing into dir. An empty dir uses the OS
// temp directory; a zero timeout uses DefaultFetchTimeout.
func NewFetcher(client *httpclient.Client, dir string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{
		client:  client,
		dir:     dir,
		timeout: timeout,
		log:     logger.Global().Module("cover"),
	}
}

// Fetch downloads url into a new file and returns its path. The caller owns
// the file and must remove it.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	resp, err := f.client.Get(ctx, url, httpclient.Referer(url))
	if err != nil {
		return "", errors.NetworkError(err, url, f.timeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Newf("image download returned status %d", resp.StatusCode).
			Component("cover").
			Category(errors.CategoryImageFetch).
			Context("url", url).
			Context("status", resp.StatusCode).
			Build()
	}

	dir := f.dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.FileError(err, dir, 0)
	}

	file, err := os.CreateTemp(dir, "cover_*"+extensionOf(url))
	if err != nil {
		return "", errors.FileError(err, dir, 0)
	}
	name := file.Name()

	n, err := io.Copy(file, io.LimitReader(resp.Body, maxImageSize+1))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n > maxImageSize {
		err = fmt.Errorf("image exceeds %d bytes", maxImageSize)
	}
	if err == nil && n == 0 {
		err = fmt.Errorf("empty image body")
	}
	if err != nil {
		_ = os.Remove(name)
		return "", errors.New(err).
			Component("cover").
			Category(errors.CategoryImageFetch).
			Context("url", url).
			Build()
	}

	f.log.Debug("cover downloaded",
		logger.String("url", url),
		logger.Int64("bytes", n),
		logger.Duration("duration", time.Since(start)))
	return name, nil
}

// extensionOf returns the image extension found in url, defaulting to .jpg.
func extensionOf(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	if ext := strings.ToLower(path.Ext(url)); imageExtPattern.MatchString(ext) && len(ext) <= 5 {
		return ext
	}
	if m := imageExtPattern.FindString(url); m != "" {
		return strings.ToLower(m)
	}
	return ".jpg"
}
