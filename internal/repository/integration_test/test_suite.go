package integration_test

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"courier-dispatch/internal/pkg/config"
	"courier-dispatch/internal/pkg/postgres"
	"courier-dispatch/pkg/logger/zap_adapter"
	"courier-dispatch/pkg/querier"

	sq "github.com/Masterminds/squirrel"
	"github.com/avito-tech/go-transaction-manager/pgxv5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

const applicationName = "courier-dispatch-integration-test"

var (
	poolInstance    *pgxpool.Pool
	querierInstance *querier.Querier
	once            sync.Once
)

func initDB() {
	once.Do(func() {
		// godotenv.Load(.env.test) не вызываем, окружение выставляет тот, кто запускает тесты
		cfg := &config.Database{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     os.Getenv("POSTGRES_PORT"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   os.Getenv("POSTGRES_DB"),
			SSLMode:  os.Getenv("POSTGRES_SSLMODE"),
			MaxConns: 10,
			MinConns: 1,
		}

		zapLogger, err := zap_adapter.NewZapAdapter("warn")
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		defer func() {
			if err := zapLogger.Sync(); err != nil {
				log.Printf("failed to sync logger: %v", err)
			}
		}()

		poolInstance, err = postgres.NewConnPool(context.Background(), zapLogger, cfg, applicationName)
		if err != nil {
			panic(err)
		}

		querierInstance = querier.New(poolInstance, pgxv5.DefaultCtxGetter)
	})
}

func GetQuerier() *querier.Querier {
	initDB()
	return querierInstance
}

// GetPool нужен тестам LISTEN/NOTIFY и транзакций.
func GetPool() *pgxpool.Pool {
	initDB()
	return poolInstance
}

func SetupDB(t *testing.T, setupSql string) {
	t.Helper()

	if setupSql == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := GetQuerier().Exec(ctx, sq.Expr(setupSql))

	require.NoError(t, err)
}

func TeardownDB(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := GetQuerier().Exec(ctx, sq.Expr(
		"TRUNCATE TABLE courier_sessions, task_events RESTART IDENTITY CASCADE",
	))
	require.NoError(t, err)
}
