// Package sqlite3 backs small databases and the engine's own test suite:
// modernc.org/sqlite is pure Go, so end-to-end tests run without a server.
package sqlite3

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/dataveil/dataveil/database"
)

type Sqlite3Database struct {
	config database.Config
	db     *sql.DB
}

func NewDatabase(config database.Config) (database.Database, error) {
	dsn := config.ConnectionString
	if dsn == "" {
		dsn = config.DbName
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	return &Sqlite3Database{
		db:     db,
		config: config,
	}, nil
}

func (d *Sqlite3Database) DB() *sql.DB {
	return d.db
}

func (d *Sqlite3Database) Dialect() database.Dialect {
	return Dialect{}
}

func (d *Sqlite3Database) Close() error {
	return d.db.Close()
}

type Dialect struct{}

func (Dialect) Name() string {
	return "sqlite3"
}

func (Dialect) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (Dialect) Placeholder(n int) string {
	return "?"
}

func (Dialect) PageClause(offset int64, limit int) string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
}

func (Dialect) SupportsMultiStatement() bool {
	return false
}
