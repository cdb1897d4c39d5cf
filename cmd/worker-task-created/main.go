package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"courier-dispatch/internal/app"
	taskcreatedhandler "courier-dispatch/internal/handlers/kafka-consumer/task_created"
	"courier-dispatch/internal/handlers/rest/healthcheck_head"
	"courier-dispatch/internal/pkg/config"
	"courier-dispatch/internal/pkg/dotenv"
	"courier-dispatch/internal/pkg/grpchealth"
	"courier-dispatch/internal/pkg/kafka"
	"courier-dispatch/internal/pkg/postgres"
	"courier-dispatch/pkg/logger"
	"courier-dispatch/pkg/logger/zap_adapter"

	"github.com/IBM/sarama"
	"github.com/avito-tech/go-transaction-manager/pgxv5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	applicationName = "courier-dispatch-worker-task-created"
	healthService   = "task-created"
)

func main() {
	envLoaded, envErr := dotenv.Load()

	cfg, err := config.LoadWorker()
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

	var appLogger logger.Logger = zapLogger
	mainLog := appLogger.With(logger.NewField("app", applicationName))

	mainLog.Info("starting kafka-worker application")

	switch {
	case envErr != nil:
		mainLog.Error("failed to load .env file",
			logger.NewField("error", envErr),
		)
		return
	case !envLoaded:
		mainLog.Warn("No .env file found, using system environment variables")
	}

	err = run(context.Background(), mainLog, cfg)
	if err != nil {
		mainLog.Error("application failed",
			logger.NewField("error", err),
		)
		return
	}
}

//nolint:contextcheck // Получаю предупреждения от линтера в местах де наследуюсь от context.Background(), хотя это часть gracefull shutdown
func run(ctx context.Context, log logger.Logger, cfg *config.Config) error {
	const (
		shutdownPeriod      = 15 * time.Second
		shutdownHardPeriod  = 3 * time.Second
		readinessDrainDelay = 5 * time.Second
	)

	// https://victoriametrics.com/blog/go-graceful-shutdown/#b-use-basecontext-to-provide-a-global-context-to-all-connections
	var isShuttingDown atomic.Bool

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	runLog := log.With()

	pool, err := postgres.NewConnPool(ctx, log, &cfg.Database, applicationName)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	businessApp, err := app.InitializeKafkaWorkerApp(ctx, log, pool, pgxv5.DefaultCtxGetter, cfg)
	if err != nil {
		return fmt.Errorf("business logic: %w", err)
	}

	listenerCtx, stopListener := context.WithCancel(context.Background())
	defer stopListener()

	listenerErr := make(chan error, 1)
	go func() {
		defer close(listenerErr)
		if err := businessApp.SessionListener.Run(listenerCtx); err != nil {
			listenerErr <- err
		}
	}()

	// ongoingCtx используется для BaseContext и не должен отменяться при SIGTERM.
	// Он отменяется только после server.Shutdown() для завершения in-flight запросов.
	// https://victoriametrics.com/blog/go-graceful-shutdown/#b-use-basecontext-to-provide-a-global-context-to-all-connections
	ongoingCtx, stopOngoingGracefully := context.WithCancel(context.Background())
	defer stopOngoingGracefully()

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Kafka.PortHealthcheck),
		Handler: initHealthcheckRouter(&isShuttingDown, pool),
		BaseContext: func(_ net.Listener) context.Context {
			return ongoingCtx
		},

		ReadHeaderTimeout: 5 * time.Second, // Slowloris DoS gosec G112
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	healthServerErr := make(chan error, 1)
	go func() {
		defer close(healthServerErr)

		runLog.With(
			logger.NewField("port", cfg.Kafka.PortHealthcheck),
		).Info("Server starting")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			healthServerErr <- err
		}
	}()

	grpcHealth := grpchealth.New(log, healthService)
	grpcHealthErr := make(chan error, 1)
	go func() {
		defer close(grpcHealthErr)
		if err := grpcHealth.Listen(cfg.Kafka.PortGRPCHealth); err != nil {
			grpcHealthErr <- err
		}
	}()

	brokers := kafka.ParseBrokers(cfg.Kafka.Brokers)

	producer, err := kafka.NewProducer(ctx, log, &cfg.Kafka, brokers, cfg.Kafka.DispatchResultTopic)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			runLog.With(logger.NewField("error", err)).Error("Failed to close Kafka producer")
		}
	}()

	kafkaHandler := taskcreatedhandler.New(
		log,
		businessApp.DispatchService,
		producer,
		cfg.Dispatch.DefaultRadiusMeters,
		cfg.Kafka.Handlers.TaskCreated.ProcessTimeout,
	)

	consumer, err := kafka.NewConsumer(
		ctx,
		log,
		&cfg.Kafka,
		brokers,
		cfg.Kafka.ConsumerGroup,
		[]string{cfg.Kafka.TaskCreatedTopic},
		kafkaHandler,
	)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}

	consumerErr := make(chan error, 1)
	go func() {
		defer close(consumerErr)

		runLog.With(
			logger.NewField("brokers", brokers),
			logger.NewField("topic", cfg.Kafka.TaskCreatedTopic),
			logger.NewField("group", cfg.Kafka.ConsumerGroup),
		).Info("Kafka consumer starting")

		if err := consumer.Start(ongoingCtx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, sarama.ErrClosedConsumerGroup) {
				runLog.Info("Kafka consumer stopped gracefully")
			} else {
				consumerErr <- err
			}
		}
	}()

	grpcHealth.SetServing(healthService)

	select {
	case <-ctx.Done():
		runLog.Info("Shutdown signal received")
	case err := <-consumerErr:
		return fmt.Errorf("consumer: %w", err)
	case err := <-healthServerErr:
		return fmt.Errorf("healthcheck server: %w", err)
	case err := <-grpcHealthErr:
		return fmt.Errorf("grpc health server: %w", err)
	case err := <-listenerErr:
		return fmt.Errorf("session listener: %w", err)
	}

	stop()
	isShuttingDown.Store(true)
	grpcHealth.SetNotServing(healthService)

	time.Sleep(readinessDrainDelay)
	runLog.Info("Draining Kafka messages")

	// shutdownCtx должен быть независим от ctx, который уже отменен на этом этапе.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()

	err = healthServer.Shutdown(shutdownCtx)
	if err != nil {
		runLog.Info("Graceful shutdown timeout, forcing close")
		time.Sleep(shutdownHardPeriod)
	}
	grpcHealth.Stop(shutdownCtx)

	stopOngoingGracefully()

	if err := consumer.Close(); err != nil {
		runLog.With(logger.NewField("error", err)).Error("Failed to close Kafka consumer")
	}

	// результаты отмененных диспетчеризаций публикуются до закрытия producer
	dispatchCtx, cancelDispatch := context.WithTimeout(context.Background(), cfg.Dispatch.ShutdownTimeout)
	defer cancelDispatch()

	if err := businessApp.DispatchService.Shutdown(dispatchCtx); err != nil {
		runLog.With(logger.NewField("error", err)).Error("dispatches did not finish in time")
	}

	stopListener()
	businessApp.BackgroundWorkers.Wait()

	runLog.Info("Worker stopped")
	return nil
}

func initHealthcheckRouter(isShuttingDown *atomic.Bool, pool *pgxpool.Pool) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/healthcheck", healthcheck_head.New(isShuttingDown, pool))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
