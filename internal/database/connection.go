package database

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/focuslog/focuslog/internal/config"
	"github.com/focuslog/focuslog/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultDBName = "focuslog.db"

type DB struct {
	*gorm.DB
}

func GetDefaultDBPath() string {
	return filepath.Join(config.DataDir(), defaultDBName)
}

// Connect opens the session history database, creating its directory.
func Connect(dbPath string) (*DB, error) {
	if dbPath == "" {
		dbPath = GetDefaultDBPath()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	return &DB{db}, nil
}

func (db *DB) Initialize() error {
	err := db.AutoMigrate(&models.SessionRecord{}, &models.ErrorLog{})
	if err != nil {
		return errors.Wrap(err, "failed to initialize database schema")
	}

	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	return sqlDB.Close()
}
