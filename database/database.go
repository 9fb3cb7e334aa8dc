// Package database is the backend abstraction layer plus the shared batch
// reader and writer. Per-database packages only contribute a connection and
// a Dialect; every query the engine issues is built here.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type Config struct {
	DbName   string
	User     string
	Password string
	Host     string
	Port     int
	Socket   string

	// Raw connection string; when set, backends use it as-is.
	ConnectionString string
}

// Database abstracts one SQL backend.
type Database interface {
	DB() *sql.DB
	Dialect() Dialect
	Close() error
}

// Dialect captures the syntax differences the reader and writer care about.
type Dialect interface {
	Name() string
	QuoteIdent(ident string) string
	// Placeholder returns the 1-based parameter marker, e.g. $3 or @p3 or ?.
	Placeholder(n int) string
	// PageClause follows ORDER BY and bounds the page.
	PageClause(offset int64, limit int) string
	// SupportsMultiStatement reports whether several parameterized UPDATE
	// statements can be sent in one round trip.
	SupportsMultiStatement() bool
}

// Session is the subset of *sql.DB / *sql.Conn the reader and writer use.
// Each table worker pins its own *sql.Conn, so a connection is never shared
// across workers.
type Session interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// ConnectivityError means the database could not be reached at startup.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("cannot connect to database: %s", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// Ping verifies connectivity once before any worker starts.
func Ping(ctx context.Context, d Database) error {
	if err := d.DB().PingContext(ctx); err != nil {
		return &ConnectivityError{Err: err}
	}
	return nil
}

// QuoteQualified quotes a possibly schema-qualified name part by part.
func QuoteQualified(d Dialect, fullName string) string {
	parts := strings.Split(fullName, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}
