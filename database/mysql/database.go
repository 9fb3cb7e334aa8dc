package mysql

import (
	"database/sql"
	"fmt"

	driver "github.com/go-sql-driver/mysql"

	"github.com/dataveil/dataveil/database"
)

type MysqlDatabase struct {
	config database.Config
	db     *sql.DB
}

func NewDatabase(config database.Config) (database.Database, error) {
	db, err := sql.Open("mysql", mysqlBuildDSN(config))
	if err != nil {
		return nil, err
	}

	return &MysqlDatabase{
		db:     db,
		config: config,
	}, nil
}

func (d *MysqlDatabase) DB() *sql.DB {
	return d.db
}

func (d *MysqlDatabase) Dialect() database.Dialect {
	return Dialect{}
}

func (d *MysqlDatabase) Close() error {
	return d.db.Close()
}

func mysqlBuildDSN(config database.Config) string {
	if config.ConnectionString != "" {
		return config.ConnectionString
	}

	c := driver.NewConfig()
	c.User = config.User
	c.Passwd = config.Password
	c.DBName = config.DbName
	if config.Socket != "" {
		c.Net = "unix"
		c.Addr = config.Socket
	} else {
		c.Net = "tcp"
		c.Addr = fmt.Sprintf("%s:%d", config.Host, config.Port)
	}
	return c.FormatDSN()
}

type Dialect struct{}

func (Dialect) Name() string {
	return "mysql"
}

func (Dialect) QuoteIdent(ident string) string {
	return "`" + ident + "`"
}

func (Dialect) Placeholder(n int) string {
	return "?"
}

func (Dialect) PageClause(offset int64, limit int) string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
}

// multi-statement Exec needs multiStatements=1 in the DSN; don't rely on it.
func (Dialect) SupportsMultiStatement() bool {
	return false
}
