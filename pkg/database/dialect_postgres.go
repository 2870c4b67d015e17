package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// PostgresDialect implements Dialect for PostgreSQL.
type PostgresDialect struct{}

func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "postgres" }

func (d *PostgresDialect) DSN(dataSource string) string { return dataSource }

func (d *PostgresDialect) Rebind(query string) string {
	return rewritePlaceholdersToNumbered(query)
}

// SupportsLastInsertID is false: lib/pq needs a RETURNING clause.
func (d *PostgresDialect) SupportsLastInsertID() bool { return false }

func (d *PostgresDialect) Configure(db *sql.DB) error { return nil }

func (d *PostgresDialect) SerialPrimaryKey() string {
	return "BIGSERIAL PRIMARY KEY"
}

func (d *PostgresDialect) Upsert(conflict, update []string) string {
	return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
		strings.Join(conflict, ", "), excludedAssignments(update, "%s = EXCLUDED.%s"))
}

func (d *PostgresDialect) ForUpdate() string { return " FOR UPDATE" }

func (d *PostgresDialect) TimestampType() string { return "TIMESTAMPTZ" }
