package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"courier-dispatch/internal/pkg/config"
	"courier-dispatch/internal/pkg/dotenv"
	"courier-dispatch/internal/pkg/postgres"
	"courier-dispatch/migrations"
	"courier-dispatch/pkg/logger"
	"courier-dispatch/pkg/logger/zap_adapter"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/pflag"
)

const applicationName = "courier-dispatch-migrate"

// флаги объявляются до dotenv.Load, который вызывает pflag.Parse
var command = pflag.String("command", "up", "goose command: up, down, status, version, redo, reset, up-to, down-to")

func main() {
	envLoaded, envErr := dotenv.Load()

	cfg, err := config.LoadDatabase()
	if err != nil {
		stdlog.Fatalf("load config: %v", err)
	}

	zapLogger, err := zap_adapter.NewZapAdapter(cfg.LogLevel)
	if err != nil {
		stdlog.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := zapLogger.Sync(); err != nil {
			stdlog.Printf("failed to sync logger: %v", err)
		}
	}()

	log := zapLogger.With(
		logger.NewField("app", applicationName),
		logger.NewField("command", *command),
	)

	switch {
	case envErr != nil:
		log.Error("failed to load .env file", logger.NewField("error", envErr))
		return
	case !envLoaded:
		log.Warn("No .env file found, using system environment variables")
	}

	err = run(context.Background(), log, cfg, *command, pflag.Args())
	if err != nil {
		log.Error("migration failed", logger.NewField("error", err))
		os.Exit(1)
	}
	log.Info("migration finished")
}

func run(ctx context.Context, log logger.Logger, cfg *config.Config, command string, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	pool, err := postgres.NewConnPool(ctx, log, &cfg.Database, applicationName)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("close sql.DB", logger.NewField("error", err))
		}
	}()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&gooseLogger{log: log})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, db, ".", args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// gooseLogger направляет вывод goose в структурированный лог.
type gooseLogger struct {
	log logger.Logger
}

func (g *gooseLogger) Printf(format string, v ...interface{}) {
	g.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g *gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
	os.Exit(1)
}
