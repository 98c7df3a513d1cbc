package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"doctrack/internal/domain/document"
	"doctrack/internal/domain/user"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// LogLevel maps the service LOG_LEVEL onto gorm's logger. SQL statements are
// only traced at debug.
func LogLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	case "silent", "off":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// OpenGorm opens the relational store selected by driver. For sqlite the dsn
// is a file path; for mysql it is a go-sql-driver DSN.
func OpenGorm(driver, dsn, logLevel string) (*gorm.DB, error) {
	switch driver {
	case DriverMySQL:
		return OpenGormWithDialector(mysql.Open(dsn), logLevel)
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
		return OpenGormWithDialector(sqlite.Open(dsn), logLevel)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

func OpenGormWithDialector(dial gorm.Dialector, logLevel string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(LogLevel(logLevel)),
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	slog.Info("gorm: connected", "dialect", dial.Name())
	return db, nil
}

// Migrate creates or updates the documents and users tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&document.Document{}, &user.User{})
}
