package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/noah-isme/school-ops-api/pkg/config"
)

// NewSQLite opens the embedded SQLite store used for single-node deployments.
func NewSQLite(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = "school_ops.db"
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)

	db, err := sqlx.Open(config.DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}

	// SQLite serialises writers; a single connection avoids SQLITE_BUSY under concurrent sweeps.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
