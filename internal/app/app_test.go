package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/codeseek/internal/conf"
	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/record"
	"github.com/tphakala/codeseek/internal/render"
)

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	dir := t.TempDir()

	s := &conf.Settings{}
	s.Store.Driver = conf.DriverSQLite
	s.Store.SQLite.Path = filepath.Join(dir, "records.db")
	s.Cover.Cache.Path = filepath.Join(dir, "coverCache.json")
	s.Cover.Cache.TTL = time.Hour
	s.Cover.Cache.Capacity = 10
	s.Cover.LookupTimeout = time.Second
	s.Cover.ValidateTimeout = time.Second
	s.Bot.SaveDir = dir
	s.Recommend.SampleSize = 3
	s.Recommend.Categories = map[string]string{"VR": "vr_video"}
	return s
}

func TestAppLookupEndToEnd(t *testing.T) {
	a, err := New(testSettings(t))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	require.NoError(t, a.Connect(t.Context()))

	store, err := a.Store.Get(t.Context())
	require.NoError(t, err)
	_, err = store.Import(t.Context(), "vr_video", []record.Record{
		{"number": "VR-001", "title": "First", "magnet": "magnet:?xt=1", "img": "https://img/vr1.jpg"},
	})
	require.NoError(t, err)

	out, err := a.Pipeline.Lookup(t.Context(), "VR-001")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, render.KindPhoto, out[0].Kind)
	assert.Equal(t, "https://img/vr1.jpg", out[0].Image.RemoteURL)

	rec, err := a.Searcher.Recommend(t.Context(), a.Categories(), "vr", a.Settings.Recommend.SampleSize)
	require.NoError(t, err)
	assert.Equal(t, "VR", rec.Category)
	assert.Len(t, rec.Hits, 1)
}

func TestAppConnectFailure(t *testing.T) {
	settings := testSettings(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	settings.Store.SQLite.Path = filepath.Join(blocker, "records.db")

	a, err := New(settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	err = a.Connect(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
}

func TestAppRejectsUnknownDriver(t *testing.T) {
	settings := testSettings(t)
	settings.Store.Driver = "mongodb"

	_, err := New(settings)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestAppRejectsUnknownProvider(t *testing.T) {
	settings := testSettings(t)
	settings.Cover.Providers = []conf.ProviderSettings{{Kind: "bing", Enabled: true}}

	_, err := New(settings)
	require.Error(t, err)
}
