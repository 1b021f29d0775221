package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	apperrors "github.com/Tawesh/idb-to-sql/internal/errors"
	"github.com/Tawesh/idb-to-sql/internal/logger"
)

// MySQL server error numbers the replay engine reacts to
const (
	ErUnknownDatabase = 1049
	ErAccessDenied    = 1045
	ErDBAccessDenied  = 1044
)

// Mode selects how a connection is opened.
type Mode int

const (
	// ModeTransactional selects the target database; callers run a transaction on it.
	ModeTransactional Mode = iota
	// ModeServer connects without selecting a database.
	ModeServer
	// ModeAutoCommit selects the target database with autocommit forced on.
	ModeAutoCommit
)

func (m Mode) String() string {
	switch m {
	case ModeTransactional:
		return "transactional"
	case ModeServer:
		return "server"
	case ModeAutoCommit:
		return "autocommit"
	default:
		return "unknown"
	}
}

// ConnectionConfig holds everything needed to reach the target server.
// It is built once per run and passed by value.
type ConnectionConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
	Charset   string
	Collation string
}

// Addr returns host:port
func (c ConnectionConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DSN builds the go-sql-driver DSN for the given mode.
func (c ConnectionConfig) DSN(mode Mode) string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = c.Addr()
	if c.Collation != "" {
		cfg.Collation = c.Collation
	}

	charset := c.Charset
	if charset == "" {
		charset = CreateCharset
	}
	cfg.Params = map[string]string{"charset": charset}

	switch mode {
	case ModeServer:
		cfg.DBName = ""
	case ModeAutoCommit:
		cfg.DBName = c.Database
		cfg.Params["autocommit"] = "1"
	default:
		cfg.DBName = c.Database
	}

	return cfg.FormatDSN()
}

// String renders the config without the password, for logs.
func (c ConnectionConfig) String() string {
	return fmt.Sprintf("%s@%s/%s", c.User, c.Addr(), c.Database)
}

// Connector opens database handles. Every call returns a fresh handle that
// the caller owns and must close.
type Connector interface {
	Open(ctx context.Context, cfg ConnectionConfig, mode Mode) (*sql.DB, error)
}

// MySQLConnector opens real connections through go-sql-driver/mysql.
type MySQLConnector struct {
	log logger.Logger
}

// NewMySQLConnector creates a connector that logs through log
func NewMySQLConnector(log logger.Logger) *MySQLConnector {
	return &MySQLConnector{log: log}
}

// Open connects and pings. The returned handle is limited to one connection
// so a transaction and the statements on it never hop between sessions.
// Driver errors are returned unwrapped so IsUnknownDatabase can inspect them.
func (c *MySQLConnector) Open(ctx context.Context, cfg ConnectionConfig, mode Mode) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN(mode))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if c.log != nil {
		c.log.Debug("Connected to MySQL", "target", cfg.String(), "mode", mode.String())
	}
	return db, nil
}

// IsUnknownDatabase reports whether err is MySQL error 1049.
func IsUnknownDatabase(err error) bool {
	return mysqlErrorNumber(err) == ErUnknownDatabase
}

// IsAccessDenied reports whether err is MySQL error 1044 or 1045.
func IsAccessDenied(err error) bool {
	n := mysqlErrorNumber(err)
	return n == ErAccessDenied || n == ErDBAccessDenied
}

func mysqlErrorNumber(err error) uint16 {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number
	}
	return 0
}

// Preflight checks that the server is reachable with the configured
// credentials. It connects without selecting a database, since a missing
// target database is created on demand later. Unreachable servers are
// retried with PreflightRetry; rejected credentials are not.
func Preflight(ctx context.Context, connector Connector, cfg ConnectionConfig) error {
	var log logger.Logger = logger.NewNullLogger()
	if mc, ok := connector.(*MySQLConnector); ok && mc.log != nil {
		log = mc.log
	}

	var db *sql.DB
	err := RetryOperation(ctx, PreflightRetry, func() error {
		var err error
		db, err = connector.Open(ctx, cfg, ModeServer)
		return err
	}, IsAccessDenied, func(err error, wait time.Duration) {
		log.Warn("MySQL not reachable, retrying", "target", cfg.Addr(), "error", err, "wait", wait)
	})
	if err != nil {
		if IsAccessDenied(err) {
			return apperrors.AccessDenied(cfg.User, err)
		}
		return apperrors.ConnectionFailed(cfg.Host, cfg.Port, err)
	}
	return db.Close()
}
