package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/checkout-reconciler/internal/bootstrap"
	"github.com/angelmondragon/checkout-reconciler/pkg/config"
	"github.com/angelmondragon/checkout-reconciler/pkg/db"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
	"github.com/angelmondragon/checkout-reconciler/pkg/migrate"
)

type flags struct {
	cmd     string
	dir     string
	name    string
	version string
}

// schemaCommands need a database connection.
var schemaCommands = map[string]func(context.Context, *migrate.Migrator, flags) error{
	"up":     func(ctx context.Context, m *migrate.Migrator, _ flags) error { return m.Up(ctx) },
	"down":   func(ctx context.Context, m *migrate.Migrator, _ flags) error { return m.Down(ctx) },
	"reset":  func(ctx context.Context, m *migrate.Migrator, _ flags) error { return m.Reset(ctx) },
	"status": func(ctx context.Context, m *migrate.Migrator, _ flags) error { return m.Status(ctx) },
	"version": func(ctx context.Context, m *migrate.Migrator, f flags) error {
		if f.version == "" {
			return fmt.Errorf("-version is required for -cmd=version")
		}
		return m.To(ctx, f.version)
	},
}

// fileCommands only touch the migrations directory.
var fileCommands = map[string]func(flags) error{
	"create": func(f flags) error {
		if f.name == "" {
			return fmt.Errorf("-name is required for -cmd=create")
		}
		path, err := migrate.CreateSQLMigration(f.dir, f.name)
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	},
	"validate": func(f flags) error {
		if err := migrate.ValidateDir(f.dir); err != nil {
			return err
		}
		fmt.Println("migrations ok:", f.dir)
		return nil
	},
}

func commandNames() string {
	names := make([]string, 0, len(schemaCommands)+len(fileCommands))
	for name := range schemaCommands {
		names = append(names, name)
	}
	for name := range fileCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func main() {
	var f flags
	flag.StringVar(&f.cmd, "cmd", "up", "migration command: "+commandNames())
	flag.StringVar(&f.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&f.name, "name", "", "migration name, for -cmd=create")
	flag.StringVar(&f.version, "version", "", "target version (YYYYMMDDHHMMSS), for -cmd=version")
	flag.Parse()

	if fn, ok := fileCommands[f.cmd]; ok {
		if err := fn(f); err != nil {
			fmt.Fprintf(os.Stderr, "migrate %s: %v\n", f.cmd, err)
			os.Exit(1)
		}
		return
	}
	fn, ok := schemaCommands[f.cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown -cmd %q, want one of %s\n", f.cmd, commandNames())
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		bootstrap.Exit(nil, "migrate config", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": f.cmd,
		"dir": f.dir,
	})

	if err := runSchema(ctx, cfg, logg, f, fn); err != nil {
		bootstrap.Exit(logg, "migrate "+f.cmd+" failed", err)
	}
	logg.Info(ctx, "migrate finished")
}

func runSchema(ctx context.Context, cfg *config.Config, logg *logger.Logger, f flags, fn func(context.Context, *migrate.Migrator, flags) error) error {
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer client.Close()

	sqlDB, err := client.SQL()
	if err != nil {
		return err
	}
	m, err := migrate.New(sqlDB, cfg.DB.Driver, f.dir)
	if err != nil {
		return err
	}
	return fn(ctx, m, f)
}
