package db

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/tajer-app/locations/internal/config"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	DuplicateEntry    = 1062
	pgUniqueViolation = "23505"
)

type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func init() {
	sqlx.BindDriver(string(DialectSQLite), sqlx.QUESTION)
}

// DialectOf returns the dialect of an open connection.
func DialectOf(conn *sqlx.DB) Dialect {
	return Dialect(conn.DriverName())
}

func New(cfg config.Database) (*sqlx.DB, error) {
	var (
		dbConn *sqlx.DB
		err    error
	)

	switch Dialect(cfg.Driver) {
	case DialectMySQL:
		dbConn, err = newMySQL(cfg)
	case DialectPostgres:
		dbConn, err = newPostgres(cfg)
	case DialectSQLite:
		return NewSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConnections)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConnections)

	if err := dbConn.Ping(); err != nil {
		return nil, err
	}

	return dbConn, nil
}

func newMySQL(cfg config.Database) (*sqlx.DB, error) {
	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time load location failed: %w", err)
	}
	conf := mysql.NewConfig()
	conf.Net = cfg.Net
	conf.Addr = cfg.Server
	conf.User = cfg.User
	conf.Passwd = cfg.Password
	conf.DBName = cfg.DBName
	conf.Timeout = cfg.Timeout
	conf.Loc = location
	conf.ParseTime = true
	// progress guards rely on matched rather than changed rows
	conf.ClientFoundRows = true
	conf.Params = map[string]string{"charset": "utf8mb4"}

	dbConn, err := sqlx.Connect(string(DialectMySQL), conf.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("db connection failed: %w", err)
	}

	return dbConn, nil
}

func newPostgres(cfg config.Database) (*sqlx.DB, error) {
	host, port, err := net.SplitHostPort(cfg.Server)
	if err != nil {
		host, port = cfg.Server, "5432"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		host, port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, int(cfg.Timeout.Seconds()))

	dbConn, err := sqlx.Connect(string(DialectPostgres), dsn)
	if err != nil {
		return nil, fmt.Errorf("db connection failed: %w", err)
	}

	return dbConn, nil
}

// NewSQLite opens a SQLite database through the pure Go driver. A single
// connection is used so that ":memory:" databases are shared by every query.
func NewSQLite(path string) (*sqlx.DB, error) {
	dbConn, err := sqlx.Connect(string(DialectSQLite), path)
	if err != nil {
		return nil, fmt.Errorf("db connection failed: %w", err)
	}
	dbConn.SetMaxOpenConns(1)

	if _, err := dbConn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return dbConn, nil
}

// IsDuplicateEntry reports whether err is a unique constraint violation.
func IsDuplicateEntry(err error) bool {
	var (
		mysqlError  *mysql.MySQLError
		pqError     *pq.Error
		sqliteError *sqlite.Error
	)
	switch {
	case errors.As(err, &mysqlError):
		return mysqlError.Number == DuplicateEntry
	case errors.As(err, &pqError):
		return pqError.Code == pgUniqueViolation
	case errors.As(err, &sqliteError):
		code := sqliteError.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
