package datastore

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/logger"
	"github.com/tphakala/codeseek/internal/record"
)

// Lazy is a shared store handle that opens the underlying store on first use.
// Concurrent first callers wait for a single Open; a failed Open is not
// remembered so a later call retries.
type Lazy struct {
	open func() (Interface, error)

	group singleflight.Group
	mu    sync.RWMutex
	store Interface

	// OnUnavailable is called with the wrapped error whenever opening fails.
	OnUnavailable func(err error)
}

// NewLazy returns a handle that calls open on first use.
func NewLazy(open func() (Interface, error)) *Lazy {
	return &Lazy{open: open}
}

// NewLazyFromStore returns a handle that opens store on first use.
func NewLazyFromStore(store Interface) *Lazy {
	return NewLazy(func() (Interface, error) {
		if err := store.Open(); err != nil {
			return nil, err
		}
		return store, nil
	})
}

// Get returns the open store, connecting if necessary. The connection attempt
// itself is not bound to ctx so a caller that gives up does not fail the
// others waiting on it.
func (l *Lazy) Get(ctx context.Context) (Interface, error) {
	l.mu.RLock()
	store := l.store
	l.mu.RUnlock()
	if store != nil {
		return store, nil
	}

	ch := l.group.DoChan("open", func() (any, error) {
		l.mu.RLock()
		existing := l.store
		l.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		opened, err := l.open()
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.store = opened
		l.mu.Unlock()
		return opened, nil
	})

	select {
	case <-ctx.Done():
		return nil, errors.New(ctx.Err()).
			Component("datastore").
			Category(errors.CategoryCancellation).
			Context("operation", "open_store").
			Build()
	case res := <-ch:
		if res.Err != nil {
			err := fmt.Errorf("%w: %w", ErrStoreUnavailable, res.Err)
			datastoreLogger().Error("failed to open record store", logger.Error(res.Err))
			if l.OnUnavailable != nil {
				l.OnUnavailable(err)
			}
			return nil, errors.New(err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Context("operation", "open_store").
				Build()
		}
		return res.Val.(Interface), nil
	}
}

// Close closes the store if it was ever opened.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.store == nil {
		return nil
	}
	err := l.store.Close()
	l.store = nil
	return err
}

// ListCollections implements Querier.
func (l *Lazy) ListCollections(ctx context.Context) ([]string, error) {
	store, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return store.ListCollections(ctx)
}

// FindByCode implements Querier.
func (l *Lazy) FindByCode(ctx context.Context, collection, code string) ([]record.Record, error) {
	store, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return store.FindByCode(ctx, collection, code)
}

// Sample implements Querier.
func (l *Lazy) Sample(ctx context.Context, collection string, n int) ([]record.Record, error) {
	store, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return store.Sample(ctx, collection, n)
}
