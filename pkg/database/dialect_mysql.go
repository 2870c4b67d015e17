package database

import (
	"database/sql"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDialect implements Dialect for MySQL.
type MySQLDialect struct{}

func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) Name() string       { return "mysql" }
func (d *MySQLDialect) DriverName() string { return "mysql" }

// DSN makes DATETIME columns scan into time.Time.
func (d *MySQLDialect) DSN(dataSource string) string {
	if strings.Contains(dataSource, "parseTime=") {
		return dataSource
	}
	if strings.Contains(dataSource, "?") {
		return dataSource + "&parseTime=true"
	}
	return dataSource + "?parseTime=true"
}

func (d *MySQLDialect) Rebind(query string) string { return query }

func (d *MySQLDialect) SupportsLastInsertID() bool { return true }

func (d *MySQLDialect) Configure(db *sql.DB) error { return nil }

func (d *MySQLDialect) SerialPrimaryKey() string {
	return "BIGINT AUTO_INCREMENT PRIMARY KEY"
}

// Upsert ignores the conflict columns; MySQL resolves on any unique key.
func (d *MySQLDialect) Upsert(_, update []string) string {
	return " ON DUPLICATE KEY UPDATE " + excludedAssignments(update, "%s = VALUES(%s)")
}

func (d *MySQLDialect) ForUpdate() string { return " FOR UPDATE" }

func (d *MySQLDialect) TimestampType() string { return "DATETIME(6)" }
