//go:build wireinject
// +build wireinject

package app

import (
	"context"
	"time"

	dispatch_delete "courier-dispatch/internal/handlers/rest/dispatch_delete"
	dispatch_get "courier-dispatch/internal/handlers/rest/dispatch_get"
	dispatch_post "courier-dispatch/internal/handlers/rest/dispatch_post"
	ping_get "courier-dispatch/internal/handlers/rest/ping_get"
	session_delete "courier-dispatch/internal/handlers/rest/session_delete"
	session_finish_post "courier-dispatch/internal/handlers/rest/session_finish_post"
	session_get "courier-dispatch/internal/handlers/rest/session_get"
	session_location_put "courier-dispatch/internal/handlers/rest/session_location_put"
	session_offer_post "courier-dispatch/internal/handlers/rest/session_offer_post"
	session_post "courier-dispatch/internal/handlers/rest/session_post"
	"courier-dispatch/internal/handlers/tasks/dispatch_gc"
	"courier-dispatch/internal/handlers/tasks/limiter_cleanup"
	"courier-dispatch/internal/handlers/tasks/offer_reconcile"
	"courier-dispatch/internal/pkg/config"
	system_metrics "courier-dispatch/internal/pkg/metrics"
	sessionRepo "courier-dispatch/internal/repository/session"
	dispatchService "courier-dispatch/internal/service/dispatch"
	"courier-dispatch/internal/service/geoindex"
	sessionService "courier-dispatch/internal/service/session"
	"courier-dispatch/pkg/background"
	"courier-dispatch/pkg/logger"
	"courier-dispatch/pkg/querier"
	"courier-dispatch/pkg/retrier"
	"courier-dispatch/pkg/retrier/backoff_adapter"
	"courier-dispatch/pkg/token_bucket"
	"courier-dispatch/pkg/tx"

	"github.com/avito-tech/go-transaction-manager/pgxv5"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
)

const (
	storeRetryInitialInterval = 100 * time.Millisecond
	storeRetryMaxInterval     = 2 * time.Second
	storeRetryMaxElapsedTime  = 30 * time.Second
	storeRetryRandomization   = 0.5
	storeRetryMultiplier      = 2

	txTimeout = 5 * time.Second
)

type Application struct {
	ServiceSession    ServiceSession
	ServiceDispatch   ServiceDispatch
	SessionListener   *sessionRepo.Listener
	RateLimiter       *token_bucket.Keyed
	BackgroundWorkers *background.Worker
}

type ServiceSession interface {
	session_get.Service
	session_post.Service
	session_location_put.Service
	session_offer_post.Service
	session_finish_post.Service
	session_delete.Service
}

type ServiceDispatch interface {
	dispatch_post.Service
	dispatch_get.Service
	dispatch_delete.Service
	ping_get.Stats
	Shutdown(ctx context.Context) error
}

// InitializeApplication для HTTP сервиса (cmd/service)
func InitializeApplication(
	ctx context.Context,
	log logger.Logger,
	pool *pgxpool.Pool,
	getter *pgxv5.CtxGetter,
	cfg *config.Config,
) (*Application, error) {
	wire.Build(
		storeSet,
		dispatchSet,

		provideServiceSession,
		provideRateLimiter,

		provideOfferReconcileTask,
		provideDispatchGCTask,
		provideLimiterCleanupTask,
		provideSystemCollector,
		provideTaskList,
		provideBackgroundWorkers,

		wire.Struct(new(Application), "*"),

		wire.Bind(new(ServiceSession), new(*sessionService.Service)),
		wire.Bind(new(ServiceDispatch), new(*dispatchService.Service)),
		wire.Bind(new(offer_reconcile.Service), new(*sessionService.Service)),
		wire.Bind(new(dispatch_gc.Service), new(*dispatchService.Service)),
		wire.Bind(new(limiter_cleanup.Limiter), new(*token_bucket.Keyed)),
	)
	return &Application{}, nil
}

type KafkaWorkerApp struct {
	DispatchService   *dispatchService.Service
	SessionListener   *sessionRepo.Listener
	BackgroundWorkers *background.Worker
}

// InitializeKafkaWorkerApp для Kafka воркера (cmd/worker-task-created)
func InitializeKafkaWorkerApp(
	ctx context.Context,
	log logger.Logger,
	pool *pgxpool.Pool,
	getter *pgxv5.CtxGetter,
	cfg *config.Config,
) (*KafkaWorkerApp, error) {
	wire.Build(
		storeSet,
		dispatchSet,

		provideDispatchGCTask,
		provideSystemCollector,
		provideWorkerTaskList,
		provideBackgroundWorkers,

		wire.Bind(new(dispatch_gc.Service), new(*dispatchService.Service)),

		wire.Struct(new(KafkaWorkerApp), "*"),
	)
	return nil, nil
}

var storeSet = wire.NewSet(
	provideTxManager,
	provideQuerier,
	provideClock,
	provideStoreRetrier,
	provideSessionRepository,
	provideSessionListener,
	sessionRepo.NewStore,

	wire.Bind(new(retrier.Retrier), new(*backoff_adapter.Retrier)),
)

var dispatchSet = wire.NewSet(
	provideGeoIndex,
	dispatchService.NewSelector,
	provideDispatcher,
	provideDispatchService,
)

func provideTxManager(pool *pgxpool.Pool) *tx.Manager {
	return tx.New(pool, txTimeout)
}

func provideQuerier(pool *pgxpool.Pool, getter *pgxv5.CtxGetter) *querier.Querier {
	return querier.New(pool, getter)
}

func provideClock() clockwork.Clock {
	return clockwork.NewRealClock()
}

// provideStoreRetrier - повторы записи в хранилище сессий и переподключение LISTEN.
func provideStoreRetrier() *backoff_adapter.Retrier {
	return backoff_adapter.New(retrier.Config{
		InitialInterval: storeRetryInitialInterval,
		MaxInterval:     storeRetryMaxInterval,
		MaxElapsedTime:  storeRetryMaxElapsedTime,
		Randomization:   storeRetryRandomization,
		Multiplier:      storeRetryMultiplier,
	})
}

func provideSessionRepository(querier *querier.Querier) *sessionRepo.Repository {
	return sessionRepo.New(querier)
}

func provideSessionListener(
	pool *pgxpool.Pool,
	repository *sessionRepo.Repository,
	retrier retrier.Retrier,
	log logger.Logger,
) *sessionRepo.Listener {
	return sessionRepo.NewListener(pool, repository, retrier, log)
}

func provideServiceSession(
	store *sessionRepo.Store,
	txManager *tx.Manager,
	clock clockwork.Clock,
) *sessionService.Service {
	return sessionService.New(store, store, txManager, clock)
}

func provideGeoIndex(store *sessionRepo.Store) *geoindex.Index {
	return geoindex.New(store)
}

func provideDispatcher(
	store *sessionRepo.Store,
	index *geoindex.Index,
	selector *dispatchService.Selector,
	retrier retrier.Retrier,
	clock clockwork.Clock,
	log logger.Logger,
	cfg *config.Config,
) *dispatchService.Dispatcher {
	return dispatchService.New(store, index, selector, retrier, clock, log, dispatchService.Config{
		OfferWindow:   cfg.Dispatch.OfferWindow,
		MaxRejections: cfg.Dispatch.MaxRejections,
		ClearTimeout:  cfg.Dispatch.ClearTimeout,
	})
}

func provideDispatchService(
	dispatcher *dispatchService.Dispatcher,
	clock clockwork.Clock,
	log logger.Logger,
	cfg *config.Config,
) *dispatchService.Service {
	return dispatchService.NewService(dispatcher, clock, log, cfg.Dispatch.ResultRetention)
}

func provideRateLimiter(clock clockwork.Clock, cfg *config.Config) *token_bucket.Keyed {
	return token_bucket.NewKeyed(clock, cfg.Server.RateLimiterBurst, float64(cfg.Server.RateLimiterQPS))
}

func provideOfferReconcileTask(
	log logger.Logger,
	service offer_reconcile.Service,
	cfg *config.Config,
) *offer_reconcile.OfferReconcile {
	return offer_reconcile.NewOfferReconcile(log, service, cfg.Tasks.OfferReconcileInterval, cfg.Tasks.OfferReconcileGrace)
}

func provideDispatchGCTask(
	log logger.Logger,
	service dispatch_gc.Service,
	cfg *config.Config,
) *dispatch_gc.DispatchGC {
	return dispatch_gc.NewDispatchGC(log, service, cfg.Tasks.DispatchGCInterval)
}

func provideLimiterCleanupTask(limiter limiter_cleanup.Limiter, cfg *config.Config) *limiter_cleanup.LimiterCleanup {
	return limiter_cleanup.NewLimiterCleanup(limiter, cfg.Tasks.LimiterCleanupInterval, cfg.Server.RateLimiterIdle)
}

func provideSystemCollector() *system_metrics.SystemCollector {
	return system_metrics.NewSystemCollector(system_metrics.DefaultCollectInterval)
}

func provideTaskList(
	offerReconcileTask *offer_reconcile.OfferReconcile,
	dispatchGCTask *dispatch_gc.DispatchGC,
	limiterCleanupTask *limiter_cleanup.LimiterCleanup,
	systemCollector *system_metrics.SystemCollector,
) []background.Task {
	return []background.Task{
		offerReconcileTask,
		dispatchGCTask,
		limiterCleanupTask,
		systemCollector,
	}
}

func provideWorkerTaskList(
	dispatchGCTask *dispatch_gc.DispatchGC,
	systemCollector *system_metrics.SystemCollector,
) []background.Task {
	return []background.Task{
		dispatchGCTask,
		systemCollector,
	}
}

func provideBackgroundWorkers(
	ctx context.Context,
	log logger.Logger,
	clock clockwork.Clock,
	tasks []background.Task,
) (*background.Worker, error) {
	return background.New(ctx, log, clock, tasks)
}
