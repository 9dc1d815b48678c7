package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/codeseek/internal/conf"
	"github.com/tphakala/codeseek/internal/logger"
)

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.StoreSettings
}

// Open opens the SQLite database file, creating its directory if needed.
func (store *SQLiteStore) Open() error {
	path := store.Settings.SQLitePath()
	if path == "" {
		return fmt.Errorf("sqlite path is not configured")
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger()})
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve generic DB object: %w", err)
	}

	// SQLite serializes writers; a single connection also keeps :memory: databases shared
	sqlDB.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("failed to reach SQLite database: %w", err)
	}

	store.DataStore = newDataStore(db, "RANDOM()")
	datastoreLogger().Info("sqlite store opened", logger.String("path", path))
	return nil
}

// Close closes the SQLite database
func (store *SQLiteStore) Close() error {
	if err := closeDB(store.DB); err != nil {
		return err
	}
	store.DB = nil
	return nil
}
