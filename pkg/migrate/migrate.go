package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// Dialect maps CHECKOUT_DB_DRIVER onto a goose dialect.
func Dialect(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return "sqlite3"
	default:
		return "postgres"
	}
}

// Migrator applies the checkout schema migrations in dir to one database.
type Migrator struct {
	db      *sql.DB
	dialect string
	dir     string
}

func New(db *sql.DB, driver, dir string) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("migrate: database handle required")
	}
	if dir == "" {
		dir = DefaultDir
	}
	return &Migrator{db: db, dialect: Dialect(driver), dir: dir}, nil
}

func (m *Migrator) Dir() string { return m.dir }

func (m *Migrator) Up(ctx context.Context) error     { return m.run(ctx, "up") }
func (m *Migrator) Down(ctx context.Context) error   { return m.run(ctx, "down") }
func (m *Migrator) Reset(ctx context.Context) error  { return m.run(ctx, "reset") }
func (m *Migrator) Status(ctx context.Context) error { return m.run(ctx, "status") }

// Current returns the latest applied version, 0 on an empty database.
func (m *Migrator) Current(ctx context.Context) (int64, error) {
	if err := goose.SetDialect(m.dialect); err != nil {
		return 0, fmt.Errorf("goose dialect %s: %w", m.dialect, err)
	}
	v, err := goose.GetDBVersionContext(ctx, m.db)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// To moves the schema up or down until version is the latest applied one.
// Versions are the 14 digit timestamps that prefix migration files.
func (m *Migrator) To(ctx context.Context, version string) error {
	target, err := strconv.ParseInt(strings.TrimSpace(version), 10, 64)
	if err != nil {
		return fmt.Errorf("version %q is not a migration timestamp: %w", version, err)
	}
	current, err := m.Current(ctx)
	if err != nil {
		return err
	}
	switch {
	case target > current:
		err = goose.UpToContext(ctx, m.db, m.dir, target)
	case target < current:
		err = goose.DownToContext(ctx, m.db, m.dir, target)
	}
	if err != nil {
		return fmt.Errorf("migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

func (m *Migrator) run(ctx context.Context, command string) error {
	if err := goose.SetDialect(m.dialect); err != nil {
		return fmt.Errorf("goose dialect %s: %w", m.dialect, err)
	}
	if err := goose.RunContext(ctx, command, m.db, m.dir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
