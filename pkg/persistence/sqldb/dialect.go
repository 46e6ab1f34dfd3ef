package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Dialect names a supported database/sql driver.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"

	// sqliteDriver is go-sqlite3 with a unicode_lower function registered on every connection.
	sqliteDriver = "sqlite3_opsplan"
)

var (
	ErrUnsupportedDialect = errors.New("unsupported database dialect")

	numberedPlaceholder = regexp.MustCompile(`\$(\d+)`)

	sqliteTypes = strings.NewReplacer(
		"TIMESTAMPTZ", "TIMESTAMP",
		"DOUBLE PRECISION", "REAL",
		"JSONB", "TEXT",
	)
)

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// SQLite's LOWER only folds ASCII.
			return conn.RegisterFunc("unicode_lower", strings.ToLower, true)
		},
	})
}

// ParseDialect maps a driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx", "postgresql":
		return Postgres, nil
	case "sqlite3", "sqlite", "file":
		return SQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, driver)
	}
}

// Rebind rewrites $n placeholders into the driver's syntax. Queries are written once, Postgres style.
func (d Dialect) Rebind(query string) string {
	if d == SQLite {
		return numberedPlaceholder.ReplaceAllString(query, "?$1")
	}

	return query
}

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == SQLite {
		return sqliteDriver
	}

	return string(d)
}

// Lower wraps a column expression in the dialect's Unicode-aware lowercase function.
func (d Dialect) Lower(expr string) string {
	if d == SQLite {
		return "unicode_lower(" + expr + ")"
	}

	return "LOWER(" + expr + ")"
}

// Schema rewrites Postgres column types into the dialect's equivalents.
func (d Dialect) Schema(ddl string) string {
	if d == SQLite {
		return sqliteTypes.Replace(ddl)
	}

	return ddl
}

// Placeholder returns the first positional bind variable.
func (d Dialect) Placeholder() string {
	return d.Rebind("$1")
}

// IsUniqueViolation reports whether err was raised by a unique or primary key constraint.
func (d Dialect) IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}

// DSN adds the connection options the dialect needs to dsn.
func (d Dialect) DSN(dsn string) string {
	if d != SQLite {
		return dsn
	}

	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}

	return dsn + separator + "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"
}
