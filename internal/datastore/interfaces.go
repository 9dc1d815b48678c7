// Package datastore provides read access to the catalog record store.
//
// Every table in the database is a collection of schema-less records. Only the
// columns named in record.CodeFields are used for lookups; all other columns
// are returned as-is.
package datastore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/codeseek/internal/conf"
	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/logger"
	"github.com/tphakala/codeseek/internal/record"
)

// columnCacheTTL bounds how long discovered table columns are trusted.
const columnCacheTTL = 5 * time.Minute

// Querier is the read interface the search layer depends on.
type Querier interface {
	// ListCollections returns every collection in the store.
	ListCollections(ctx context.Context) ([]string, error)
	// FindByCode returns records whose code columns equal code exactly.
	FindByCode(ctx context.Context, collection, code string) ([]record.Record, error)
	// Sample returns up to n random records from a collection.
	Sample(ctx context.Context, collection string, n int) ([]record.Record, error)
}

// Interface is a store with a connection lifecycle.
type Interface interface {
	Querier
	Open() error
	Close() error
	// Import inserts records into a collection, creating it and any missing columns.
	Import(ctx context.Context, collection string, records []record.Record) (int, error)
}

// DataStore implements the query side of Interface on top of GORM. The
// driver specific stores embed it and provide Open and Close.
type DataStore struct {
	DB      *gorm.DB
	columns *cache.Cache // table -> []string code columns present
	random  string       // SQL random function of the dialect
}

// New returns an unopened store for the configured driver.
func New(settings *conf.Settings) (Interface, error) {
	switch settings.Store.Driver {
	case conf.DriverSQLite:
		return &SQLiteStore{Settings: &settings.Store}, nil
	case conf.DriverMySQL:
		return &MySQLStore{Settings: &settings.Store}, nil
	default:
		return nil, errors.Newf("unsupported store driver %q", settings.Store.Driver).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

func newDataStore(db *gorm.DB, random string) DataStore {
	return DataStore{
		DB:      db,
		columns: cache.New(columnCacheTTL, 2*columnCacheTTL),
		random:  random,
	}
}

func datastoreLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// gormLogger routes GORM output through the datastore module logger.
func gormLogger() *logger.GormLoggerAdapter {
	return logger.NewGormLoggerAdapter(datastoreLogger(), 500*time.Millisecond)
}

func (ds *DataStore) ready() error {
	if ds.DB == nil {
		return ErrNotOpen
	}
	return nil
}

// ListCollections returns all user tables of the database.
func (ds *DataStore) ListCollections(ctx context.Context) ([]string, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}

	tables, err := ds.DB.WithContext(ctx).Migrator().GetTables()
	if err != nil {
		return nil, errors.New(fmt.Errorf("listing collections: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "list_collections").
			Build()
	}

	// sqlite reports its internal bookkeeping tables too
	tables = slices.DeleteFunc(tables, func(name string) bool {
		return strings.HasPrefix(name, "sqlite_")
	})
	slices.Sort(tables)
	return tables, nil
}

// codeColumns returns the code alias columns that exist in a table.
func (ds *DataStore) codeColumns(ctx context.Context, collection string) ([]string, error) {
	if cached, found := ds.columns.Get(collection); found {
		if cols, ok := cached.([]string); ok {
			return cols, nil
		}
	}

	types, err := ds.DB.WithContext(ctx).Migrator().ColumnTypes(collection)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(types))
	for _, ct := range types {
		present[strings.ToLower(ct.Name())] = true
	}

	var cols []string
	for _, field := range record.CodeFields {
		if present[field] {
			cols = append(cols, field)
		}
	}

	ds.columns.Set(collection, cols, cache.DefaultExpiration)
	return cols, nil
}

// FindByCode matches code by exact equality against every code alias column
// the collection has. Collections without any such column yield no records.
func (ds *DataStore) FindByCode(ctx context.Context, collection, code string) ([]record.Record, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}

	cols, err := ds.codeColumns(ctx, collection)
	if err != nil {
		return nil, queryError(err, collection, "describe_collection")
	}
	if len(cols) == 0 {
		return nil, nil
	}

	exprs := make([]clause.Expression, 0, len(cols))
	for _, col := range cols {
		exprs = append(exprs, clause.Eq{Column: clause.Column{Name: col}, Value: code})
	}

	var rows []map[string]any
	if err := ds.DB.WithContext(ctx).
		Table(collection).
		Where(clause.Or(exprs...)).
		Find(&rows).Error; err != nil {
		return nil, queryError(err, collection, "find_by_code")
	}

	return toRecords(rows), nil
}

// Sample returns up to n randomly ordered records.
func (ds *DataStore) Sample(ctx context.Context, collection string, n int) ([]record.Record, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	var rows []map[string]any
	if err := ds.DB.WithContext(ctx).
		Table(collection).
		Order(clause.Expr{SQL: ds.random}).
		Limit(n).
		Find(&rows).Error; err != nil {
		return nil, queryError(err, collection, "sample")
	}

	return toRecords(rows), nil
}

// Import inserts records, creating the collection and missing columns as TEXT.
func (ds *DataStore) Import(ctx context.Context, collection string, records []record.Record) (int, error) {
	if err := ds.ready(); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	var columns []string
	for _, rec := range records {
		for key := range rec {
			if !slices.Contains(columns, key) {
				columns = append(columns, key)
			}
		}
	}
	slices.Sort(columns)

	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		migrator := tx.Migrator()
		if !migrator.HasTable(collection) {
			if err := tx.Exec("CREATE TABLE ? (? TEXT)",
				clause.Table{Name: collection}, clause.Column{Name: columns[0]}).Error; err != nil {
				return err
			}
		}
		for _, col := range columns {
			if migrator.HasColumn(collection, col) {
				continue
			}
			if err := tx.Exec("ALTER TABLE ? ADD COLUMN ? TEXT",
				clause.Table{Name: collection}, clause.Column{Name: col}).Error; err != nil {
				return err
			}
		}

		rows := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			row := make(map[string]any, len(columns))
			for _, col := range columns {
				row[col] = columnValue(rec[col])
			}
			rows = append(rows, row)
		}
		return tx.Table(collection).CreateInBatches(rows, 200).Error
	})
	if err != nil {
		return 0, queryError(err, collection, "import")
	}

	ds.columns.Delete(collection)
	return len(records), nil
}

// columnValue flattens values that TEXT columns cannot hold directly.
func columnValue(v any) any {
	switch val := v.(type) {
	case nil, string, []byte, int, int64, float64, bool, time.Time:
		return val
	case []any:
		if len(val) > 0 {
			return fmt.Sprint(val[0])
		}
		return nil
	case []string:
		if len(val) > 0 {
			return val[0]
		}
		return nil
	default:
		return fmt.Sprint(val)
	}
}

func toRecords(rows []map[string]any) []record.Record {
	out := make([]record.Record, len(rows))
	for i, row := range rows {
		out[i] = record.Record(row)
	}
	return out
}

func queryError(err error, collection, operation string) error {
	return errors.New(fmt.Errorf("collection %s: %w", collection, err)).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Context("collection", collection).
		Build()
}

// closeDB closes the underlying sql.DB of a GORM handle.
func closeDB(db *gorm.DB) error {
	if db == nil {
		return ErrNotOpen
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve generic DB object: %w", err)
	}
	return sqlDB.Close()
}
