// Package session keeps paginated multi-keyword search results between
// requests. Sessions expire after an idle period and the store is bounded;
// when full, the least recently used sessions are evicted first.
package session

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/codeseek/internal/record"
)

// Defaults
const (
	DefaultTTL      = 30 * time.Minute
	DefaultCapacity = 1000
	DefaultPageSize = 5
)

// View is one page of a session.
type View struct {
	ID    string       `json:"id"`
	Hits  []record.Hit `json:"hits"`
	Page  int          `json:"page"`  // zero based
	Pages int          `json:"pages"` // total number of pages
	Total int          `json:"total"` // total number of hits
}

// HasPrev reports whether a previous page exists.
func (v *View) HasPrev() bool { return v.Page > 0 }

// HasNext reports whether a next page exists.
func (v *View) HasNext() bool { return v.Page < v.Pages-1 }

type state struct {
	hits []record.Hit
	page int
}

// Store holds sessions in memory.
type Store struct {
	mu       sync.Mutex
	items    *cache.Cache
	ttl      time.Duration
	capacity int
	pageSize int
}

// New returns a store. Non-positive arguments use the defaults.
func New(ttl time.Duration, capacity, pageSize int) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Store{
		items:    cache.New(ttl, ttl/2),
		ttl:      ttl,
		capacity: capacity,
		pageSize: pageSize,
	}
}

// PageSize returns the number of hits per page.
func (s *Store) PageSize() int { return s.pageSize }

// Create stores hits in a new session and returns its id.
func (s *Store) Create(hits []record.Hit) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items.Set(id, &state{hits: hits}, s.ttl)
	s.evictLocked()
	return id
}

// Page returns page n of a session and makes it the current page. The page
// is clamped to the valid range. ok is false for unknown or expired sessions.
func (s *Store) Page(id string, n int) (*View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, found := s.items.Get(id)
	if !found {
		return nil, false
	}
	st, ok := v.(*state)
	if !ok {
		return nil, false
	}

	pages := max(1, (len(st.hits)+s.pageSize-1)/s.pageSize)
	n = min(max(n, 0), pages-1)
	st.page = n

	// refresh the idle timeout
	s.items.Set(id, st, s.ttl)

	start := n * s.pageSize
	end := min(start+s.pageSize, len(st.hits))
	return &View{
		ID:    id,
		Hits:  st.hits[start:end],
		Page:  n,
		Pages: pages,
		Total: len(st.hits),
	}, true
}

// Current returns the current page of a session.
func (s *Store) Current(id string) (*View, bool) {
	s.mu.Lock()
	v, found := s.items.Get(id)
	s.mu.Unlock()
	if !found {
		return nil, false
	}
	st, ok := v.(*state)
	if !ok {
		return nil, false
	}
	return s.Page(id, st.page)
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.items.Delete(id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.items.ItemCount()
}

// evictLocked drops the sessions closest to expiry, which are the least
// recently used ones, until the store is back at capacity.
func (s *Store) evictLocked() {
	items := s.items.Items()
	excess := len(items) - s.capacity
	if excess <= 0 {
		return
	}

	type entry struct {
		id      string
		expires int64
	}
	entries := make([]entry, 0, len(items))
	for id, item := range items {
		entries = append(entries, entry{id: id, expires: item.Expiration})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(a.expires, b.expires); c != 0 {
			return c
		}
		return strings.Compare(a.id, b.id)
	})
	for _, e := range entries[:excess] {
		s.items.Delete(e.id)
	}
}
