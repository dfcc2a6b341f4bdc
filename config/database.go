package config

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// gormLogWriter receives gorm's warnings and slow query reports
var gormLogWriter io.Writer = os.Stdout

// gormLogger reports slow queries and errors. A missing row is an
// expected lookup result and is not logged.
func gormLogger() logger.Interface {
	return logger.New(log.New(gormLogWriter, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// sqliteParams enables write-ahead logging and foreign keys on every connection.
const sqliteParams = "_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000"

// ConnectDatabase opens the database named by databaseURL and stores it as the global handle
func ConnectDatabase(databaseURL string) error {
	db, err := OpenDatabase(databaseURL)
	if err != nil {
		return err
	}
	SetDB(db)
	slog.Info("database connection established")
	return nil
}

// OpenDatabase opens a Postgres database for postgres:// URLs and a sqlite
// file otherwise.
func OpenDatabase(databaseURL string) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("failed to connect to database: empty DATABASE_URL")
	}

	gormConfig := &gorm.Config{
		Logger:  gormLogger(),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	if IsPostgresURL(databaseURL) {
		db, err := gorm.Open(postgres.Open(databaseURL), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return db, nil
	}

	dsn, err := sqliteDSN(databaseURL)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// sqlite allows a single writer; one connection keeps in-memory
	// databases shared and avoids SQLITE_BUSY under load.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// IsPostgresURL reports whether url selects the Postgres driver
func IsPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

func sqliteDSN(path string) (string, error) {
	if path == ":memory:" {
		return "file::memory:?" + sqliteParams, nil
	}
	if strings.Contains(path, "?") {
		return path, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return path + "?" + sqliteParams, nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// SetDB replaces the database instance
func SetDB(db *gorm.DB) {
	DB = db
}
