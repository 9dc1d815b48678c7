// Package covercache stores resolved cover URLs per catalog code with a
// time-to-live and a capacity bound, persisted to a JSON file after every
// mutation.
package covercache

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/logger"
	"github.com/tphakala/codeseek/internal/observability/metrics"
)

const (
	// DefaultTTL is how long a resolved cover stays valid.
	DefaultTTL = 24 * time.Hour
	// DefaultCapacity bounds the number of cached covers.
	DefaultCapacity = 1000
)

// ErrCorrupt is returned by Load when the cache file cannot be decoded. The
// cache is empty afterwards and stays usable.
var ErrCorrupt = errors.NewStd("cover cache file is corrupt")

// Entry is one cached cover. Time is the Unix time in milliseconds at which
// the cover was stored.
type Entry struct {
	URL  string `json:"url"`
	Time int64  `json:"time"`
}

func (e Entry) storedAt() time.Time { return time.UnixMilli(e.Time) }

// Stats describes the cache contents.
type Stats struct {
	Path     string    `json:"path" yaml:"path"`
	Entries  int       `json:"entries" yaml:"entries"`
	Capacity int       `json:"capacity" yaml:"capacity"`
	TTL      string    `json:"ttl" yaml:"ttl"`
	Oldest   time.Time `json:"oldest,omitzero" yaml:"oldest,omitempty"`
	Newest   time.Time `json:"newest,omitzero" yaml:"newest,omitempty"`
}

// Cache is safe for concurrent use. Reads share a lock; every
// mutate-then-persist sequence holds the write lock throughout.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	path     string
	ttl      time.Duration
	capacity int
	now      func() time.Time
	metrics  *metrics.CoverMetrics
	log      logger.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCapacity overrides DefaultCapacity.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics records hits, misses and the entry count.
func WithMetrics(m *metrics.CoverMetrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New returns an empty cache persisted at path. An empty path keeps the
// cache in memory only. Call Load to read existing entries.
func New(path string, opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[string]Entry),
		path:     path,
		ttl:      DefaultTTL,
		capacity: DefaultCapacity,
		now:      time.Now,
		log:      logger.Global().Module("covercache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load replaces the contents with the persisted file. A missing file leaves
// the cache empty without error. A corrupt file leaves it empty and returns
// an error wrapping ErrCorrupt.
func (c *Cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
	defer func() { c.metrics.SetCacheEntries(len(c.entries)) }()

	if c.path == "" {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.log.Info("no cover cache file, starting empty", logger.String("path", c.path))
			return nil
		}
		c.log.Warn("failed to read cover cache, starting empty",
			logger.String("path", c.path), logger.Error(err))
		return errors.New(err).
			Component("covercache").
			Category(errors.CategoryFileIO).
			FileContext(c.path, 0).
			Build()
	}

	var loaded map[string]Entry
	if err := json.Unmarshal(data, &loaded); err != nil {
		c.log.Warn("cover cache file is corrupt, starting empty",
			logger.String("path", c.path), logger.Error(err))
		return errors.New(fmt.Errorf("%w: %w", ErrCorrupt, err)).
			Component("covercache").
			Category(errors.CategoryImageCache).
			FileContext(c.path, int64(len(data))).
			Build()
	}

	for code, entry := range loaded {
		if code != "" && entry.URL != "" {
			c.entries[code] = entry
		}
	}
	c.log.Info("cover cache loaded",
		logger.String("path", c.path),
		logger.Int("entries", len(c.entries)))
	return nil
}

// Get returns the cached cover of code while it is fresh. Expired entries of
// the whole cache are swept and the result persisted when any were removed.
func (c *Cache) Get(code string) (string, bool) {
	now := c.now()

	c.mu.RLock()
	entry, found := c.entries[code]
	stale := c.hasExpired(now)
	c.mu.RUnlock()

	if stale {
		c.mu.Lock()
		if c.pruneExpired(now) > 0 {
			if err := c.persistLocked(); err != nil {
				c.log.Warn("failed to persist cover cache", logger.Error(err))
			}
			c.metrics.SetCacheEntries(len(c.entries))
		}
		c.mu.Unlock()
	}

	if !found || !c.fresh(entry, now) {
		c.metrics.RecordCacheLookup(false)
		return "", false
	}
	c.metrics.RecordCacheLookup(true)
	return entry.URL, true
}

// Put stores url for code with the current time, drops expired entries,
// evicts the oldest entries beyond capacity and persists the result.
func (c *Cache) Put(code, url string) error {
	if code == "" || url == "" {
		return nil
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[code] = Entry{URL: url, Time: now.UnixMilli()}
	c.pruneExpired(now)
	if evicted := c.evictOverCapacity(); evicted > 0 {
		c.log.Debug("evicted oldest covers", logger.Int("count", evicted))
	}
	c.metrics.SetCacheEntries(len(c.entries))

	return c.persistLocked()
}

// Purge removes every entry and persists the empty cache.
func (c *Cache) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
	c.metrics.SetCacheEntries(0)
	return c.persistLocked()
}

// Len returns the number of stored entries, fresh or not yet swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats summarizes the cache.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		Path:     c.path,
		Entries:  len(c.entries),
		Capacity: c.capacity,
		TTL:      c.ttl.String(),
	}
	for _, e := range c.entries {
		at := e.storedAt()
		if s.Oldest.IsZero() || at.Before(s.Oldest) {
			s.Oldest = at
		}
		if at.After(s.Newest) {
			s.Newest = at
		}
	}
	return s
}

func (c *Cache) fresh(e Entry, now time.Time) bool {
	return now.Sub(e.storedAt()) < c.ttl
}

func (c *Cache) hasExpired(now time.Time) bool {
	for _, e := range c.entries {
		if !c.fresh(e, now) {
			return true
		}
	}
	return false
}

// pruneExpired must be called with the write lock held.
func (c *Cache) pruneExpired(now time.Time) int {
	removed := 0
	for code, e := range c.entries {
		if !c.fresh(e, now) {
			delete(c.entries, code)
			removed++
		}
	}
	return removed
}

// evictOverCapacity removes the oldest entries until the cache is at
// capacity. Must be called with the write lock held.
func (c *Cache) evictOverCapacity() int {
	excess := len(c.entries) - c.capacity
	if excess <= 0 {
		return 0
	}

	codes := slices.Collect(maps.Keys(c.entries))
	slices.SortFunc(codes, func(a, b string) int {
		if d := cmp.Compare(c.entries[a].Time, c.entries[b].Time); d != 0 {
			return d
		}
		return cmp.Compare(a, b)
	})
	for _, code := range codes[:excess] {
		delete(c.entries, code)
	}
	return excess
}

// persistLocked writes the entries to a temp file next to the cache file and
// renames it into place. Must be called with the write lock held.
func (c *Cache) persistLocked() error {
	if c.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return errors.New(err).
			Component("covercache").
			Category(errors.CategoryImageCache).
			Build()
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.FileError(err, dir, 0)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return errors.FileError(err, dir, 0)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.FileError(err, tmpName, int64(len(data)))
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.FileError(err, tmpName, int64(len(data)))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.FileError(err, tmpName, int64(len(data)))
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.FileError(err, c.path, int64(len(data)))
	}
	return nil
}
