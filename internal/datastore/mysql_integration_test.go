//go:build integration

package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/tphakala/codeseek/internal/conf"
	"github.com/tphakala/codeseek/internal/record"
)

func TestMySQLStoreIntegration(t *testing.T) {
	ctx := t.Context()

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("catalog"),
		tcmysql.WithUsername("codeseek"),
		tcmysql.WithPassword("codeseek"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "charset=utf8mb4", "parseTime=True")
	require.NoError(t, err)

	store := &MySQLStore{Settings: &conf.StoreSettings{Driver: conf.DriverMySQL, DSN: dsn}}
	require.Eventually(t, func() bool { return store.Open() == nil }, 30*time.Second, time.Second)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Import(ctx, "uncensored", []record.Record{
		{"number": "ABC-123", "title": "first"},
		{"number": "DEF-456", "title": "second"},
	})
	require.NoError(t, err)

	collections, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Contains(t, collections, "uncensored")

	hits, err := store.FindByCode(ctx, "uncensored", "ABC-123")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "first", hits[0].Title())

	sample, err := store.Sample(ctx, "uncensored", 10)
	require.NoError(t, err)
	assert.Len(t, sample, 2)
}
