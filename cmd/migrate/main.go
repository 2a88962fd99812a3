// Command migrate manages the marketplace schema.
//
//	migrate [-dir DIR] up|down|status
//	migrate [-dir DIR] to <YYYYMMDDHHMMSS>
//	migrate [-dir DIR] create <name>
//	migrate [-dir DIR] validate
//
// Without -dir, up/down/status/to run the migrations embedded in the binary and
// create/validate work on pkg/migrate/migrations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bazar-market/bazar-backend/pkg/config"
	"github.com/bazar-market/bazar-backend/pkg/db"
	"github.com/bazar-market/bazar-backend/pkg/logger"
	"github.com/bazar-market/bazar-backend/pkg/migrate"
)

var errUsage = errors.New("usage: migrate [-dir DIR] up|down|status|to <version>|create <name>|validate")

func main() {
	dir := flag.String("dir", "", "goose migrations directory (default: embedded)")
	flag.Parse()

	if err := run(flag.Args(), *dir); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(args []string, dir string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	// Offline commands only touch the filesystem.
	diskDir := dir
	if diskDir == "" {
		diskDir = migrate.DefaultDir
	}
	switch cmd {
	case "create":
		if len(rest) != 1 {
			return errUsage
		}
		path, err := migrate.CreateSQLMigration(diskDir, rest[0])
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(diskDir); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": cmd, "dir": dir})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer client.Close()

	if cfg.DB.IsSQLite() {
		if cmd != "up" {
			return fmt.Errorf("%s is not supported on sqlite; only up", cmd)
		}
		if err := migrate.AutoMigrateModels(ctx, client.DB()); err != nil {
			return err
		}
		logg.Info(ctx, "sqlite schema migrated")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}
	var source fs.FS
	if dir != "" {
		source = os.DirFS(dir)
	}
	m, err := migrate.NewMigrator(sqlDB, source)
	if err != nil {
		return err
	}

	var done []migrate.Step
	switch cmd {
	case "up":
		done, err = m.Up(ctx)
	case "down":
		done, err = m.Down(ctx)
	case "to":
		if len(rest) != 1 {
			return errUsage
		}
		done, err = m.To(ctx, rest[0])
	case "status":
		return printStatus(ctx, m)
	default:
		return errUsage
	}
	for _, step := range done {
		fmt.Printf("%-4s %d %s\n", step.Direction, step.Version, step.Path)
	}
	if err != nil {
		logg.Error(ctx, "migration failed", err)
		return err
	}
	logg.Info(logg.WithField(ctx, "steps", len(done)), "migration finished")
	return nil
}

func printStatus(ctx context.Context, m *migrate.Migrator) error {
	list, err := m.Status(ctx)
	if err != nil {
		return err
	}
	for _, s := range list {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Printf("%-8s %d %s\n", state, s.Version, s.Path)
	}
	return nil
}
