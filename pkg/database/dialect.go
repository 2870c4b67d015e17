package database

import (
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Dialect isolates the SQL differences between the supported drivers.
type Dialect interface {
	// Name is the canonical dialect name ("sqlite", "postgres", "mysql").
	Name() string

	// DriverName returns the driver name for sql.Open.
	DriverName() string

	// DSN adapts a configured data source for the driver.
	DSN(dataSource string) string

	// Rebind converts `?` placeholders when the driver needs another syntax.
	Rebind(query string) string

	// SupportsLastInsertID reports whether sql.Result.LastInsertId works.
	SupportsLastInsertID() bool

	// Configure applies connection-level settings after the first ping.
	Configure(db *sql.DB) error

	// SerialPrimaryKey is the column definition of an auto-increment id.
	SerialPrimaryKey() string

	// Upsert renders the conflict clause appended to an INSERT.
	Upsert(conflict, update []string) string

	// ForUpdate is the row lock suffix for SELECT statements, if any.
	ForUpdate() string

	// TimestampType is the column type for UTC timestamps.
	TimestampType() string
}

// DialectFor resolves a dialect from a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3", "":
		return NewSQLiteDialect(), nil
	case "postgres", "postgresql":
		return NewPostgresDialect(), nil
	case "mysql":
		return NewMySQLDialect(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

var placeholderRegexp = regexp.MustCompile(`\?`)

func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

func excludedAssignments(update []string, format string) string {
	parts := make([]string, len(update))
	for i, col := range update {
		parts[i] = fmt.Sprintf(format, col, col)
	}
	return strings.Join(parts, ", ")
}
