package database

import (
	"database/sql"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// minAllowedPacket keeps the client from rejecting large audio blobs
const minAllowedPacket = 16 << 20

// MySQLDialect implements Dialect for MySQL
type MySQLDialect struct{}

// NewMySQLDialect creates a new MySQL dialect
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) DriverName() string { return "mysql" }

// DSN forces parseTime and UTC so DATETIME columns scan into time.Time. An
// unparseable DSN is passed through for the driver to report.
func (d *MySQLDialect) DSN(config DialectConfig) string {
	cfg, err := mysql.ParseDSN(config.URL)
	if err != nil {
		return config.URL
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if cfg.MaxAllowedPacket > 0 && cfg.MaxAllowedPacket < minAllowedPacket {
		cfg.MaxAllowedPacket = minAllowedPacket
	}
	return cfg.FormatDSN()
}

func (d *MySQLDialect) RewriteQuery(query string) string { return query }

func (d *MySQLDialect) SupportsLastInsertId() bool { return true }

func (d *MySQLDialect) ConfigureConnection(db *sql.DB, pool PoolConfig) error {
	pool.apply(db)
	_, err := db.Exec("SET FOREIGN_KEY_CHECKS = 1;")
	return err
}

func (d *MySQLDialect) MigrationsSubdir() string { return "mysql" }

func (d *MySQLDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			filename VARCHAR(255) UNIQUE NOT NULL,
			executed_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6)
		);
	`
}

func (d *MySQLDialect) UpsertQuery(table string, columns, conflict, update []string) string {
	sets := make([]string, len(update))
	for i, col := range update {
		sets[i] = col + " = VALUES(" + col + ")"
	}
	query := insertPrefix(table, columns)
	if len(sets) == 0 {
		// MySQL has no DO NOTHING; a self-assignment keeps the row as is.
		return query + " ON DUPLICATE KEY UPDATE " + conflict[0] + " = " + conflict[0]
	}
	return query + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
}
