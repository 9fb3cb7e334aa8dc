package mssql

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/dataveil/dataveil/database"
)

type MssqlDatabase struct {
	config database.Config
	db     *sql.DB
}

func NewDatabase(config database.Config) (database.Database, error) {
	db, err := sql.Open("sqlserver", mssqlBuildDSN(config))
	if err != nil {
		return nil, err
	}

	return &MssqlDatabase{
		db:     db,
		config: config,
	}, nil
}

func (d *MssqlDatabase) DB() *sql.DB {
	return d.db
}

func (d *MssqlDatabase) Dialect() database.Dialect {
	return Dialect{}
}

func (d *MssqlDatabase) Close() error {
	return d.db.Close()
}

func mssqlBuildDSN(config database.Config) string {
	if config.ConnectionString != "" {
		return config.ConnectionString
	}

	query := url.Values{}
	query.Add("database", config.DbName)

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(config.User, config.Password),
		Host:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}

type Dialect struct{}

func (Dialect) Name() string {
	return "mssql"
}

func (Dialect) QuoteIdent(ident string) string {
	return "[" + ident + "]"
}

func (Dialect) Placeholder(n int) string {
	return fmt.Sprintf("@p%d", n)
}

func (Dialect) PageClause(offset int64, limit int) string {
	return fmt.Sprintf("OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", offset, limit)
}

// go-mssqldb sends the whole text through sp_executesql, so a sub-batch of
// UPDATE statements goes out in one round trip.
func (Dialect) SupportsMultiStatement() bool {
	return true
}
