package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pressly/goose/v3"
)

var sqlFileRe = regexp.MustCompile(`^\d{14}_[a-z0-9_]+\.sql$`)

// ValidateDir checks that every migration in dir has a unique timestamp
// version and both Up and Down sections. An empty directory is valid.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	migrations, err := goose.CollectMigrations(dir, 0, goose.MaxVersion)
	if errors.Is(err, goose.ErrNoMigrationFiles) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("collect migrations in %q: %w", dir, err)
	}

	seen := make(map[int64]string, len(migrations))
	for _, m := range migrations {
		if m.Source == "" || filepath.Ext(m.Source) != ".sql" {
			continue
		}
		name := filepath.Base(m.Source)
		if prev, dup := seen[m.Version]; dup {
			return fmt.Errorf("duplicate migration version %d in %q and %q", m.Version, prev, name)
		}
		seen[m.Version] = name
		if !sqlFileRe.MatchString(name) {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		body, err := os.ReadFile(m.Source)
		if err != nil {
			return fmt.Errorf("read file %q: %w", m.Source, err)
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(body), marker) {
				return fmt.Errorf("migration %q missing %q", name, marker)
			}
		}
	}
	return nil
}
