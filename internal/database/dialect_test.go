package database

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewDialect(t *testing.T) {
	tests := []struct {
		in   DialectType
		want string
	}{
		{DialectSQLite, "sqlite"},
		{DialectPostgres, "postgres"},
		{"unknown", "sqlite"},
	}
	for _, tt := range tests {
		if got := NewDialect(tt.in).DriverName(); got != tt.want {
			t.Errorf("NewDialect(%q).DriverName() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlaceholders(t *testing.T) {
	if got := (SQLiteDialect{}).Placeholder(7); got != "?" {
		t.Errorf("SQLite Placeholder(7) = %q, want ?", got)
	}
	if got := (PostgresDialect{}).Placeholder(12); got != "$12" {
		t.Errorf("Postgres Placeholder(12) = %q, want $12", got)
	}
}

func TestSQLiteInitStatements(t *testing.T) {
	stmts := strings.Join(SQLiteDialect{}.InitStatements(), "\n")
	for _, want := range []string{"foreign_keys", "journal_mode", "busy_timeout"} {
		if !strings.Contains(stmts, want) {
			t.Errorf("InitStatements missing %s", want)
		}
	}
}

func TestIsDuplicateKeyError(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		err     error
		want    bool
	}{
		{"sqlite nil", SQLiteDialect{}, nil, false},
		{"sqlite unique", SQLiteDialect{}, errors.New("UNIQUE constraint failed: constructions.id"), true},
		{"sqlite other", SQLiteDialect{}, errors.New("no such table"), false},
		{"postgres nil", PostgresDialect{}, nil, false},
		{"postgres message", PostgresDialect{}, errors.New(`pq: duplicate key value violates unique constraint "constructions_pkey"`), true},
		{"postgres code", PostgresDialect{}, errors.New("ERROR 23505"), true},
		{"postgres other", PostgresDialect{}, errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.IsDuplicateKeyError(tt.err); got != tt.want {
				t.Errorf("IsDuplicateKeyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRebind(t *testing.T) {
	query := "SELECT * FROM constructions WHERE id = ? AND seed = ?"
	if got := Rebind(SQLiteDialect{}, query); got != query {
		t.Errorf("SQLite Rebind = %q, want unchanged", got)
	}
	want := "SELECT * FROM constructions WHERE id = $1 AND seed = $2"
	if got := Rebind(PostgresDialect{}, query); got != want {
		t.Errorf("Postgres Rebind = %q, want %q", got, want)
	}
	if got := Rebind(PostgresDialect{}, "SELECT 1"); got != "SELECT 1" {
		t.Errorf("Rebind without markers = %q", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("data/index.db")
	if cfg.Driver != "sqlite" || cfg.SQLitePath != "data/index.db" {
		t.Errorf("DefaultConfig = %+v", cfg)
	}
	pg := DefaultPostgresConfig()
	if pg.Port != 5432 || pg.SSLMode != "disable" || pg.ConnMaxLifetime != 5*time.Minute {
		t.Errorf("DefaultPostgresConfig = %+v", pg)
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5433, User: "gen", Password: "pw", Database: "stations", SSLMode: "require"}
	want := "host=db port=5433 user=gen password=pw dbname=stations sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestDialectInterfaceCompliance(t *testing.T) {
	var _ Dialect = SQLiteDialect{}
	var _ Dialect = PostgresDialect{}
}
