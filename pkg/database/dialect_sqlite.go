package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDialect implements Dialect for SQLite.
type SQLiteDialect struct{}

func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite3" }

// DSN enables foreign keys and a busy timeout on every pooled connection.
func (d *SQLiteDialect) DSN(dataSource string) string {
	params := []string{}
	if !strings.Contains(dataSource, "_foreign_keys") && !strings.Contains(dataSource, "_fk") {
		params = append(params, "_foreign_keys=on")
	}
	if !strings.Contains(dataSource, "_busy_timeout") && !strings.Contains(dataSource, "_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if len(params) == 0 {
		return dataSource
	}
	sep := "?"
	if strings.Contains(dataSource, "?") {
		sep = "&"
	}
	return dataSource + sep + strings.Join(params, "&")
}

func (d *SQLiteDialect) Rebind(query string) string { return query }

func (d *SQLiteDialect) SupportsLastInsertID() bool { return true }

func (d *SQLiteDialect) Configure(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return err
	}
	return nil
}

func (d *SQLiteDialect) SerialPrimaryKey() string {
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (d *SQLiteDialect) Upsert(conflict, update []string) string {
	return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
		strings.Join(conflict, ", "), excludedAssignments(update, "%s = excluded.%s"))
}

// ForUpdate is empty: SQLite serializes writers on the database lock.
func (d *SQLiteDialect) ForUpdate() string { return "" }

func (d *SQLiteDialect) TimestampType() string { return "TIMESTAMP" }
