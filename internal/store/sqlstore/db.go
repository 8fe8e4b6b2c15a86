package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"tasklane.org/internal/migrate"
)

// Driver names accepted by Open.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

//go:embed migrations
var migrationFiles embed.FS

// DB wraps a *sql.DB together with the dialect it speaks.
type DB struct {
	db     *sql.DB
	driver string
}

// Open connects to driver at dsn and tunes the pool for it. "postgres" is
// accepted as an alias for the pgx driver.
func Open(driver, dsn string) (*DB, error) {
	driver = normalizeDriver(driver)
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if driver == DriverSQLite {
		dsn = withSQLitePragmas(dsn)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverPostgres:
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(15 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	case DriverSQLite:
		db.SetMaxOpenConns(1)
	}
	return &DB{db: db, driver: driver}, nil
}

// New wraps an existing handle, used with sqlmock in tests.
func New(db *sql.DB, driver string) *DB {
	return &DB{db: db, driver: normalizeDriver(driver)}
}

func normalizeDriver(driver string) string {
	driver = strings.ToLower(strings.TrimSpace(driver))
	switch driver {
	case "postgres", "postgresql":
		return DriverPostgres
	case "sqlite3":
		return DriverSQLite
	}
	return driver
}

func withSQLitePragmas(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Close releases the pool.
func (d *DB) Close() error { return d.db.Close() }

// SQL exposes the underlying handle.
func (d *DB) SQL() *sql.DB { return d.db }

// Driver reports the driver name.
func (d *DB) Driver() string { return d.driver }

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

// Migrations returns the embedded schema for the driver's dialect.
func (d *DB) Migrations() (fs.FS, error) {
	dir := "migrations/postgres"
	if d.driver == DriverSQLite {
		dir = "migrations/sqlite"
	}
	return fs.Sub(migrationFiles, dir)
}

// Migrator returns a migration manager for the embedded schema.
func (d *DB) Migrator(opts ...migrate.Option) (*migrate.Manager, error) {
	files, err := d.Migrations()
	if err != nil {
		return nil, err
	}
	return migrate.NewManager(d.db, files, opts...), nil
}

// Migrate applies pending embedded migrations.
func (d *DB) Migrate(ctx context.Context) ([]string, error) {
	m, err := d.Migrator()
	if err != nil {
		return nil, err
	}
	return m.Up(ctx)
}

// Accounts returns the account store.
func (d *DB) Accounts() *AccountStore { return &AccountStore{db: d.db} }

// Todos returns the todo store.
func (d *DB) Todos() *TodoStore { return &TodoStore{db: d.db} }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "FOREIGN KEY"))
	}
	return false
}
