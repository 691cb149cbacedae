// Package database indexes finished constructions and their rooms in SQLite
// or PostgreSQL.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Database wraps the connection pool and its dialect.
type Database struct {
	db      *sql.DB
	dialect Dialect
}

// Open opens or creates the SQLite index at path.
func Open(path string) (*Database, error) {
	return OpenWithConfig(DefaultConfig(path))
}

// OpenWithConfig connects with the configured driver and migrates the
// schema.
func OpenWithConfig(cfg Config) (*Database, error) {
	dialect := NewDialect(DialectType(cfg.Driver))

	var dsn string
	switch dialect.(type) {
	case PostgresDialect:
		dsn = cfg.Postgres.DSN()
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = cfg.SQLitePath
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, ok := dialect.(PostgresDialect); ok {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
	} else {
		// One writer keeps the per-connection PRAGMAs in effect.
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize database: %w\nSQL: %s", err, stmt)
		}
	}

	d := &Database{db: db, dialect: dialect}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return d, nil
}

// Close closes the connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

// Dialect returns the SQL dialect in use.
func (d *Database) Dialect() Dialect {
	return d.dialect
}

// DB returns the underlying sql.DB for advanced operations.
func (d *Database) DB() *sql.DB {
	return d.db
}

func (d *Database) q(query string) string {
	return Rebind(d.dialect, query)
}

func (d *Database) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS constructions (
			id TEXT PRIMARY KEY,
			seed BIGINT NOT NULL,
			catalog_digest TEXT NOT NULL,
			room_count INTEGER NOT NULL,
			open_mounts INTEGER NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			seed_error DOUBLE PRECISION NOT NULL DEFAULT 0,
			snapshot_path TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS construction_rooms (
			construction_id TEXT NOT NULL REFERENCES constructions(id) ON DELETE CASCADE,
			room_id INTEGER NOT NULL,
			part TEXT NOT NULL,
			rotation TEXT NOT NULL,
			tx INTEGER NOT NULL,
			ty INTEGER NOT NULL,
			tz INTEGER NOT NULL,
			open_mounts INTEGER NOT NULL,
			PRIMARY KEY (construction_id, room_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_construction_rooms_part ON construction_rooms(part)`,
		`CREATE INDEX IF NOT EXISTS idx_constructions_created_at ON constructions(created_at)`,
	}
	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
