package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splax/heatlens/internal/app/migrate"
	"github.com/splax/heatlens/pkg/config"
	"github.com/splax/heatlens/pkg/logger"
)

func main() {
	command := flag.String("command", "up", "migrate command (up|status|down)")
	timeout := flag.Duration("timeout", time.Minute, "command timeout")
	target := flag.Int64("target", 0, "target version for down command (optional)")
	dir := flag.String("dir", "", "migrations directory (defaults to DB_MIGRATIONS_DIR, then the embedded set)")
	dsn := flag.String("database-url", "", "database url (defaults to DATABASE_URL)")
	flag.Parse()

	cfg := config.LoadAPIConfig()
	log := logger.New("migrate", logger.ParseLevel(cfg.LogLevel))
	if strings.TrimSpace(*dir) != "" {
		cfg.MigrationsDir = *dir
	}
	if strings.TrimSpace(*dsn) != "" {
		cfg.DatabaseURL = *dsn
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migration runner", "error", err)
		os.Exit(1)
	}
	defer runner.Close()

	switch *command {
	case "up":
		err = runner.Ensure(ctx)
	case "status":
		err = runner.Status(ctx)
	case "down":
		err = runner.Down(ctx, *target)
	default:
		log.Error("unsupported command", "command", *command)
		os.Exit(1)
	}
	if err != nil {
		log.Error("migration command failed", "command", *command, "error", err)
		os.Exit(1)
	}

	log.Info("migration command completed", "command", *command)
}
