package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/codeseek/internal/conf"
	"github.com/tphakala/codeseek/internal/logger"
)

// MySQLStore implements Interface for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.StoreSettings
}

// Open connects to MySQL and verifies the connection.
func (store *MySQLStore) Open() error {
	log := datastoreLogger().Module("mysql")

	db, err := gorm.Open(mysql.Open(store.Settings.MySQLDSN()), &gorm.Config{Logger: gormLogger()})
	if err != nil {
		log.Error("failed to open MySQL database",
			logger.String("host", store.Settings.MySQL.Host),
			logger.Int("port", store.Settings.MySQL.Port),
			logger.String("database", store.Settings.MySQL.Database),
			logger.Error(err))
		return fmt.Errorf("failed to open MySQL database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve generic DB object: %w", err)
	}

	sqlDB.SetMaxOpenConns(16)
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("failed to reach MySQL database: %w", err)
	}

	store.DataStore = newDataStore(db, "RAND()")
	log.Info("mysql store opened", logger.String("database", store.Settings.MySQL.Database))
	return nil
}

// Close MySQL database connections
func (store *MySQLStore) Close() error {
	if err := closeDB(store.DB); err != nil {
		return err
	}
	store.DB = nil
	return nil
}
