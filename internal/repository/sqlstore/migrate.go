package sqlstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// The schema ships inside the binary, one directory per dialect.
//
//go:embed migrations
var migrationFS embed.FS

// MigrateUp applies every pending migration. Running it against an
// up-to-date schema is a no-op.
func (db *DB) MigrateUp() error {
	return db.withMigrator(func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("sqlstore: migrate up: %w", err)
		}
		return nil
	})
}

// MigrateDown rolls back the most recent migration.
func (db *DB) MigrateDown() error {
	return db.withMigrator(func(m *migrate.Migrate) error {
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("sqlstore: migrate down: %w", err)
		}
		return nil
	})
}

// SchemaVersion reports the applied migration version and whether the last
// run left the schema dirty.
func (db *DB) SchemaVersion() (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := db.withMigrator(func(m *migrate.Migrate) error {
		v, d, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("sqlstore: reading schema version: %w", err)
		}
		version, dirty = v, d
		return nil
	})
	return version, dirty, err
}

// withMigrator builds a migrate.Migrate for the store's dialect and runs fn.
//
// SQLite runs migrations on the store's own pool: an in-memory database
// exists only on that connection. The migrate instance is therefore never
// closed for sqlite, because Close would close the shared pool.
//
// Postgres gets a short-lived pool of its own, since the postgres driver
// pins a connection for its advisory lock until Close.
func (db *DB) withMigrator(fn func(m *migrate.Migrate) error) error {
	src, err := iofs.New(migrationFS, "migrations/"+string(db.dialect))
	if err != nil {
		return fmt.Errorf("sqlstore: loading embedded migrations: %w", err)
	}

	switch db.dialect {
	case DialectSQLite:
		driver, err := migratesqlite.WithInstance(db.conn, &migratesqlite.Config{})
		if err != nil {
			return fmt.Errorf("sqlstore: creating sqlite migration driver: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
		if err != nil {
			return fmt.Errorf("sqlstore: creating migrator: %w", err)
		}
		return fn(m)

	case DialectPostgres:
		conn, err := sql.Open("postgres", db.dsn)
		if err != nil {
			return fmt.Errorf("sqlstore: opening migration connection: %w", err)
		}
		driver, err := migratepostgres.WithInstance(conn, &migratepostgres.Config{})
		if err != nil {
			conn.Close()
			return fmt.Errorf("sqlstore: creating postgres migration driver: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
		if err != nil {
			conn.Close()
			return fmt.Errorf("sqlstore: creating migrator: %w", err)
		}
		defer func() {
			_, _ = m.Close()
		}()
		return fn(m)
	}

	return fmt.Errorf("sqlstore: unsupported dialect %q", db.dialect)
}
