package postgres

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/dataveil/dataveil/database"
)

type PostgresDatabase struct {
	config database.Config
	db     *sql.DB
}

func NewDatabase(config database.Config) (database.Database, error) {
	db, err := sql.Open("postgres", postgresBuildDSN(config))
	if err != nil {
		return nil, err
	}

	return &PostgresDatabase{
		db:     db,
		config: config,
	}, nil
}

func (d *PostgresDatabase) DB() *sql.DB {
	return d.db
}

func (d *PostgresDatabase) Dialect() database.Dialect {
	return Dialect{}
}

func (d *PostgresDatabase) Close() error {
	return d.db.Close()
}

func postgresBuildDSN(config database.Config) string {
	if config.ConnectionString != "" {
		return config.ConnectionString
	}

	host := fmt.Sprintf("%s:%d", config.Host, config.Port)
	var options []string
	if config.Socket != "" {
		host = ""
		options = append(options, fmt.Sprintf("host=%s", config.Socket))
	}
	query := ""
	if len(options) > 0 {
		query = "?" + strings.Join(options, "&")
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s%s",
		config.User, config.Password, host, config.DbName, query)
}

type Dialect struct{}

func (Dialect) Name() string {
	return "postgres"
}

func (Dialect) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (Dialect) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func (Dialect) PageClause(offset int64, limit int) string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
}

// lib/pq uses the extended protocol: one parameterized statement per Exec.
func (Dialect) SupportsMultiStatement() bool {
	return false
}
