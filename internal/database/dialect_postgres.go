package database

import (
	"database/sql"
	"net/url"
	"strings"

	_ "github.com/lib/pq"
)

// applicationName tags server connections in pg_stat_activity
const applicationName = "lingoquest"

// PostgresDialect implements Dialect for PostgreSQL
type PostgresDialect struct{}

// NewPostgresDialect creates a new PostgreSQL dialect
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) DriverName() string { return "postgres" }

// DSN passes key=value connection strings through untouched. URL forms get an
// application_name unless one is already set.
func (d *PostgresDialect) DSN(config DialectConfig) string {
	if !strings.HasPrefix(config.URL, "postgres://") && !strings.HasPrefix(config.URL, "postgresql://") {
		return config.URL
	}
	u, err := url.Parse(config.URL)
	if err != nil {
		return config.URL
	}
	q := u.Query()
	if q.Get("application_name") == "" {
		q.Set("application_name", applicationName)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// RewriteQuery converts ? placeholders to $1, $2, ...
func (d *PostgresDialect) RewriteQuery(query string) string {
	return rewritePlaceholdersToNumbered(query)
}

// SupportsLastInsertId is false: inserts need a RETURNING clause
func (d *PostgresDialect) SupportsLastInsertId() bool { return false }

func (d *PostgresDialect) ConfigureConnection(db *sql.DB, pool PoolConfig) error {
	pool.apply(db)
	return nil
}

func (d *PostgresDialect) MigrationsSubdir() string { return "postgres" }

func (d *PostgresDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id BIGSERIAL PRIMARY KEY,
			filename TEXT UNIQUE NOT NULL,
			executed_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
	`
}

func (d *PostgresDialect) UpsertQuery(table string, columns, conflict, update []string) string {
	return onConflictUpsert(table, columns, conflict, update)
}
