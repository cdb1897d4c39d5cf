package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // localhost-only ${PPROF_PORT}
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	application "courier-dispatch/internal/app"
	"courier-dispatch/internal/handlers/rest/dispatch_delete"
	"courier-dispatch/internal/handlers/rest/dispatch_get"
	"courier-dispatch/internal/handlers/rest/dispatch_post"
	"courier-dispatch/internal/handlers/rest/healthcheck_head"
	"courier-dispatch/internal/handlers/rest/ping_get"
	"courier-dispatch/internal/handlers/rest/session_delete"
	"courier-dispatch/internal/handlers/rest/session_finish_post"
	"courier-dispatch/internal/handlers/rest/session_get"
	"courier-dispatch/internal/handlers/rest/session_location_put"
	"courier-dispatch/internal/handlers/rest/session_offer_post"
	"courier-dispatch/internal/handlers/rest/session_post"
	"courier-dispatch/internal/pkg/config"
	"courier-dispatch/internal/pkg/dotenv"
	"courier-dispatch/internal/pkg/middlewares/graceful_shutdown"
	"courier-dispatch/internal/pkg/middlewares/metrics"
	"courier-dispatch/internal/pkg/middlewares/rate_limiter"
	"courier-dispatch/internal/pkg/middlewares/timeout"
	"courier-dispatch/internal/pkg/postgres"
	"courier-dispatch/pkg/logger"
	"courier-dispatch/pkg/logger/zap_adapter"

	"github.com/avito-tech/go-transaction-manager/pgxv5"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const applicationName = "courier-dispatch-service"

func main() {
	envLoaded, envErr := dotenv.Load()

	cfg, err := config.Load()
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

	mainLog.Info("starting courier-dispatch application")

	switch {
	case envErr != nil:
		mainLog.Error("failed to load .env file", logger.NewField("error", envErr))
		return
	case !envLoaded:
		mainLog.Warn("No .env file found, using system environment variables")
	}

	err = run(context.Background(), cfg, mainLog)
	if err != nil {
		mainLog.Error("application failed", logger.NewField("error", err))
		return
	}
}

//nolint:contextcheck // Получаю предупреждения от линтера в местах де наследуюсь от context.Background(), хотя это часть gracefull shutdown
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
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

	businessApp, err := application.InitializeApplication(ctx, log, pool, pgxv5.DefaultCtxGetter, cfg)
	if err != nil {
		return fmt.Errorf("business logic: %w", err)
	}

	// слушатель уведомлений живет дольше http сервера:
	// диспетчеризации при остановке еще снимают офферы и ждут ответов
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

	// основной http сервер
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: initRouter(ongoingCtx, log, &isShuttingDown, businessApp, pool, cfg),
		BaseContext: func(_ net.Listener) context.Context {
			return ongoingCtx
		},

		ReadHeaderTimeout: 5 * time.Second, // Slowloris DoS gosec G112
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		defer close(serverErr)
		runLog.Info("server starting",
			logger.NewField("port", cfg.Server.Port),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	// основной http сервер

	// pprof http сервер
	var pprofServer *http.Server
	var pprofServerErr chan error
	if cfg.Server.PprofEnabled {
		pprofServer = &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Server.PprofPort),
			Handler: initPprofRouter(&isShuttingDown),
			BaseContext: func(_ net.Listener) context.Context {
				return ongoingCtx
			},

			ReadHeaderTimeout: 5 * time.Second, // Slowloris DoS gosec G112
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		pprofServerErr = make(chan error, 1)
		go func() {
			defer close(pprofServerErr)
			runLog.Info("pprof server starting",
				logger.NewField("port", cfg.Server.PprofPort),
			)
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				pprofServerErr <- err
			}
		}()
	}
	// pprof http сервер

	select {
	case <-ctx.Done():
		runLog.Info("Shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case err := <-pprofServerErr: // if !cfg.Server.PprofEnabled будет nil по умолчанию, и данный кейс будет проигнорирован
		return fmt.Errorf("pprof server: %w", err)
	case err := <-listenerErr:
		return fmt.Errorf("session listener: %w", err)
	}

	stop()
	isShuttingDown.Store(true)

	time.Sleep(readinessDrainDelay)
	runLog.Info("draining requests")

	// shutdownCtx должен быть независим от ctx, который уже отменен на этом этапе.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()

	var shutdownErr error
	err = server.Shutdown(shutdownCtx)
	if pprofServer != nil {
		shutdownErr = pprofServer.Shutdown(shutdownCtx)
		if shutdownErr != nil {
			runLog.Error("pprof server shutdown error", logger.NewField("error", shutdownErr))
		} else {
			runLog.Info("pprof server stopped")
		}
	}

	stopOngoingGracefully()
	if err != nil || shutdownErr != nil {
		runLog.Info("Graceful shutdown timeout, forcing close")
		time.Sleep(shutdownHardPeriod)
	}

	dispatchCtx, cancelDispatch := context.WithTimeout(context.Background(), cfg.Dispatch.ShutdownTimeout)
	defer cancelDispatch()

	runLog.Info("cancelling running dispatches",
		logger.NewField("running", businessApp.ServiceDispatch.Running()),
	)
	if err := businessApp.ServiceDispatch.Shutdown(dispatchCtx); err != nil {
		runLog.Error("dispatches did not finish in time", logger.NewField("error", err))
	}

	stopListener()
	businessApp.BackgroundWorkers.Wait()

	runLog.Info("Server stopped")
	return nil
}

func initRouter(
	ongoingCtx context.Context,
	log logger.Logger,
	isShuttingDown *atomic.Bool,
	app *application.Application,
	pool *pgxpool.Pool,
	cfg *config.Config,
) http.Handler {
	router := mux.NewRouter()

	router.Use(graceful_shutdown.Middleware(isShuttingDown, ongoingCtx))

	router.Use(timeout.Middleware(cfg.Server.RequestTimeout))
	router.Use(metrics.Middleware(log))
	router.Use(rate_limiter.Middleware(log, cfg.Server.RateLimiterBurst, app.RateLimiter))
	router.Handle("/metrics", promhttp.Handler())

	router.Handle("/healthcheck", healthcheck_head.New(isShuttingDown, pool)).Methods("HEAD")
	router.Handle("/ping", ping_get.New(log, app.ServiceDispatch)).Methods("GET")

	router.Handle("/dispatch", dispatch_post.New(log, app.ServiceDispatch, cfg.Dispatch.DefaultRadiusMeters)).Methods("POST")
	router.Handle("/dispatch/{id}", dispatch_get.New(log, app.ServiceDispatch)).Methods("GET")
	router.Handle("/dispatch/{id}", dispatch_delete.New(log, app.ServiceDispatch)).Methods("DELETE")

	router.Handle("/session", session_post.New(log, app.ServiceSession)).Methods("POST")
	router.Handle("/session/{id}", session_get.New(log, app.ServiceSession)).Methods("GET")
	router.Handle("/session/{id}", session_delete.New(log, app.ServiceSession)).Methods("DELETE")
	router.Handle("/session/{id}/location", session_location_put.New(log, app.ServiceSession)).Methods("PUT")
	router.Handle("/session/{id}/offer", session_offer_post.New(log, app.ServiceSession)).Methods("POST")
	router.Handle("/session/{id}/finish", session_finish_post.New(log, app.ServiceSession)).Methods("POST")

	return router
}

func initPprofRouter(isShuttingDown *atomic.Bool) http.Handler {
	router := mux.NewRouter()

	router.Handle("/healthcheck", healthcheck_head.New(isShuttingDown)).Methods("HEAD")
	router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	return router
}
