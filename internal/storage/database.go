package storage

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the catalog database. driver is one of sqlite3, mysql or
// postgres; mysql DSNs need parseTime=true.
func Open(driver, dsn string) (*sqlx.DB, error) {
	name, err := driverName(driver)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn must be provided", driver)
	}

	db, err := sqlx.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", name, err)
	}
	if name == "sqlite3" {
		// every new connection to :memory: is a fresh database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func driverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	case "mysql":
		return "mysql", nil
	case "postgres", "postgresql", "pgx":
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", driver)
	}
}

// Migrate ensures the uploaded_files table is present.
func Migrate(db *sqlx.DB) error {
	var stmts []string
	switch db.DriverName() {
	case "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS uploaded_files (
				stored_name TEXT PRIMARY KEY,
				original_name TEXT NOT NULL,
				size_bytes INTEGER NOT NULL,
				mime_type TEXT NOT NULL,
				storage_path TEXT NOT NULL,
				url TEXT NOT NULL,
				upload_type TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_uploaded_files_created ON uploaded_files(created_at)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS uploaded_files (
				stored_name VARCHAR(255) NOT NULL,
				original_name VARCHAR(1024) NOT NULL,
				size_bytes BIGINT NOT NULL,
				mime_type VARCHAR(255) NOT NULL,
				storage_path TEXT NOT NULL,
				url VARCHAR(1024) NOT NULL,
				upload_type VARCHAR(100) NOT NULL DEFAULT '',
				created_at DATETIME(3) NOT NULL,
				PRIMARY KEY (stored_name),
				INDEX idx_uploaded_files_created (created_at)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	case "pgx":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS uploaded_files (
				stored_name TEXT PRIMARY KEY,
				original_name TEXT NOT NULL,
				size_bytes BIGINT NOT NULL,
				mime_type TEXT NOT NULL,
				storage_path TEXT NOT NULL,
				url TEXT NOT NULL,
				upload_type TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_uploaded_files_created ON uploaded_files(created_at)`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", db.DriverName())
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", db.DriverName(), err)
		}
	}
	return nil
}
