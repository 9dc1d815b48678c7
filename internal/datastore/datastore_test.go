package datastore

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/codeseek/internal/conf"
	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/record"
)

// setupTestDB opens a temp-file SQLite store that is closed with the test.
func setupTestDB(t *testing.T) *SQLiteStore {
	t.Helper()

	settings := &conf.StoreSettings{Driver: conf.DriverSQLite}
	settings.SQLite.Path = filepath.Join(t.TempDir(), "catalog.db")

	store := &SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seed(t *testing.T, store Interface, collection string, records ...record.Record) {
	t.Helper()
	n, err := store.Import(t.Context(), collection, records)
	require.NoError(t, err)
	require.Equal(t, len(records), n)
}

func TestListCollections(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)

	got, err := store.ListCollections(t.Context())
	require.NoError(t, err)
	assert.Empty(t, got, "fresh database has no collections")

	seed(t, store, "uncensored", record.Record{"number": "ABC-123"})
	seed(t, store, "4k_video", record.Record{"code": "XYZ-001"})

	got, err = store.ListCollections(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"4k_video", "uncensored"}, got)
}

func TestFindByCodeMatchesAliasColumnsExactly(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)

	seed(t, store, "mixed",
		record.Record{"number": "ABC-123", "title": "by number"},
		record.Record{"serial": "ABC-123", "title": "by serial"},
		record.Record{"number": "ABC-1234", "title": "longer code"},
		record.Record{"id": "abc-123", "title": "different case"},
	)

	hits, err := store.FindByCode(t.Context(), "mixed", "ABC-123")
	require.NoError(t, err)
	require.Len(t, hits, 2)

	titles := []string{hits[0].Title(), hits[1].Title()}
	assert.ElementsMatch(t, []string{"by number", "by serial"}, titles)
}

func TestFindByCodeWithoutCodeColumns(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)

	seed(t, store, "notes", record.Record{"title": "ABC-123"})

	hits, err := store.FindByCode(t.Context(), "notes", "ABC-123")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFindByCodeUnknownCollection(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)

	_, err := store.FindByCode(t.Context(), "missing", "ABC-123")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
}

func TestImportAddsColumns(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)

	seed(t, store, "c", record.Record{"number": "A-1"})
	// column discovery is cached; a later import must invalidate it
	_, err := store.FindByCode(t.Context(), "c", "A-1")
	require.NoError(t, err)

	seed(t, store, "c", record.Record{"code": "B-2", "img": []any{"http://img/2.jpg"}})

	hits, err := store.FindByCode(t.Context(), "c", "B-2")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "http://img/2.jpg", hits[0].Image())
}

func TestSample(t *testing.T) {
	t.Parallel()
	store := setupTestDB(t)

	var recs []record.Record
	for _, code := range []string{"A-1", "A-2", "A-3", "A-4", "A-5"} {
		recs = append(recs, record.Record{"number": code})
	}
	seed(t, store, "pool", recs...)

	got, err := store.Sample(t.Context(), "pool", 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = store.Sample(t.Context(), "pool", 50)
	require.NoError(t, err)
	assert.Len(t, got, 5)

	got, err = store.Sample(t.Context(), "pool", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueriesBeforeOpen(t *testing.T) {
	t.Parallel()
	store := &SQLiteStore{Settings: &conf.StoreSettings{}}

	_, err := store.ListCollections(t.Context())
	require.ErrorIs(t, err, ErrNotOpen)
	require.ErrorIs(t, store.Close(), ErrNotOpen)
}

func TestNewUnknownDriver(t *testing.T) {
	t.Parallel()
	settings := &conf.Settings{}
	settings.Store.Driver = "mongodb"

	_, err := New(settings)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

type fakeStore struct {
	Interface
	collections []string
}

func (f *fakeStore) ListCollections(context.Context) ([]string, error) { return f.collections, nil }
func (f *fakeStore) Close() error                                      { return nil }

func TestLazyOpensOnce(t *testing.T) {
	t.Parallel()

	var opens atomic.Int32
	release := make(chan struct{})
	lazy := NewLazy(func() (Interface, error) {
		opens.Add(1)
		<-release
		return &fakeStore{collections: []string{"x"}}, nil
	})

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]string, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Go(func() {
			results[i], errs[i] = lazy.ListCollections(context.Background())
		})
	}

	close(release)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, []string{"x"}, results[i])
	}
	assert.Equal(t, int32(1), opens.Load())

	_, err := lazy.Get(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int32(1), opens.Load(), "open handle is reused")
	require.NoError(t, lazy.Close())
}

func TestLazyRetriesAfterFailure(t *testing.T) {
	t.Parallel()

	var opens atomic.Int32
	var alerts atomic.Int32
	lazy := NewLazy(func() (Interface, error) {
		if opens.Add(1) == 1 {
			return nil, errors.NewStd("connection refused")
		}
		return &fakeStore{}, nil
	})
	lazy.OnUnavailable = func(err error) {
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		alerts.Add(1)
	}

	_, err := lazy.Get(t.Context())
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
	assert.Equal(t, int32(1), alerts.Load())

	_, err = lazy.Get(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int32(2), opens.Load())
}

func TestLazyCallerCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	lazy := NewLazy(func() (Interface, error) {
		<-release
		return &fakeStore{}, nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := lazy.Get(ctx)
	require.ErrorIs(t, err, context.Canceled)

	close(release)
	_, err = lazy.Get(t.Context())
	require.NoError(t, err)
}
