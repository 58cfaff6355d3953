package db

import (
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrator applies the embedded schema migrations.
type Migrator struct {
	migrate *migrate.Migrate
}

// NewMigrator opens a migration session against databaseURL.
func NewMigrator(databaseURL string) (*Migrator, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		// golang-migrate errors may echo the URL, password included.
		redacted := redactURL(databaseURL)
		return nil, fmt.Errorf("open migration target %s: %s", redacted, strings.ReplaceAll(err.Error(), databaseURL, redacted))
	}
	return &Migrator{migrate: m}, nil
}

// Version returns the current schema version (0 when nothing is applied).
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read version: %w", err)
	}
	return version, dirty, nil
}

// Up applies n migrations, or all pending ones when n <= 0.
func (m *Migrator) Up(n int) error {
	var err error
	if n > 0 {
		err = m.migrate.Steps(n)
	} else {
		err = m.migrate.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back n migrations, or all of them when n <= 0.
func (m *Migrator) Down(n int) error {
	var err error
	if n > 0 {
		err = m.migrate.Steps(-n)
	} else {
		err = m.migrate.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.migrate.Close()
	return errors.Join(srcErr, dbErr)
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
