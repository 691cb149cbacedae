package database

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect hides the SQL differences between SQLite and PostgreSQL.
type Dialect interface {
	// DriverName is the name registered with database/sql.
	DriverName() string
	// Placeholder returns the parameter marker for a 1-indexed position.
	Placeholder(position int) string
	// InitStatements run once per connection pool before migrations.
	InitStatements() []string
	// IsDuplicateKeyError reports a primary key or unique violation.
	IsDuplicateKeyError(err error) bool
}

// DialectType names a Dialect in configuration.
type DialectType string

const (
	DialectSQLite   DialectType = "sqlite"
	DialectPostgres DialectType = "postgres"
)

// NewDialect returns the dialect for t. Unknown types fall back to SQLite.
func NewDialect(t DialectType) Dialect {
	if t == DialectPostgres {
		return PostgresDialect{}
	}
	return SQLiteDialect{}
}

// SQLiteDialect targets modernc.org/sqlite.
type SQLiteDialect struct{}

func (SQLiteDialect) DriverName() string { return "sqlite" }

func (SQLiteDialect) Placeholder(int) string { return "?" }

func (SQLiteDialect) InitStatements() []string {
	return []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
}

func (SQLiteDialect) IsDuplicateKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// PostgresDialect targets github.com/lib/pq.
type PostgresDialect struct{}

func (PostgresDialect) DriverName() string { return "postgres" }

func (PostgresDialect) Placeholder(position int) string {
	return "$" + strconv.Itoa(position)
}

// Foreign keys are always enforced by PostgreSQL.
func (PostgresDialect) InitStatements() []string { return nil }

func (PostgresDialect) IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	// 23505 is unique_violation.
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}

// Rebind rewrites ? markers in query into the dialect's placeholders.
func Rebind(d Dialect, query string) string {
	if _, ok := d.(SQLiteDialect); ok {
		return query
	}
	var b strings.Builder
	pos := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteString(d.Placeholder(pos))
			pos++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// DSN builds a lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}
