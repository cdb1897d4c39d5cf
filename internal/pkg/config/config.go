package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type (
	Tasks struct {
		OfferReconcileInterval time.Duration
		// сколько ждем после дедлайна, прежде чем считать оффер брошенным
		OfferReconcileGrace time.Duration
		DispatchGCInterval  time.Duration

		LimiterCleanupInterval time.Duration
	}

	Dispatch struct {
		OfferWindow         time.Duration
		MaxRejections       int
		ClearTimeout        time.Duration
		DefaultRadiusMeters float64
		ResultRetention     time.Duration
		ShutdownTimeout     time.Duration
	}

	HTTPServer struct {
		Port             string
		RequestTimeout   time.Duration // middleware timeout
		RateLimiterQPS   int           // пополнение bucket клиента, запросов в секунду
		RateLimiterBurst int           // емкость bucket клиента
		RateLimiterIdle  time.Duration // простой, после которого bucket клиента удаляется
		PprofEnabled     bool
		PprofPort        string
	}

	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		DBName   string
		SSLMode  string
		MaxConns int32
		MinConns int32
	}

	Kafka struct {
		PortHealthcheck     string
		PortGRPCHealth      string
		Brokers             string
		TaskCreatedTopic    string
		DispatchResultTopic string
		ConsumerGroup       string
		Sarama              Sarama
		Handlers            KafkaHandlers
	}

	Sarama struct {
		Version                   string
		ConsumerOffsetsAutocommit bool
	}

	KafkaHandlers struct {
		TaskCreated TaskCreated
	}

	TaskCreated struct {
		ProcessTimeout time.Duration
	}

	Config struct {
		LogLevel string
		Tasks    Tasks
		Dispatch Dispatch
		Server   HTTPServer
		Database Database
		Kafka    Kafka
	}
)

// Load читает конфигурацию REST сервиса.
func Load() (*Config, error) {
	return load(validateServer, validateDispatch)
}

// LoadWorker - конфигурация kafka воркера, http настройки ему не нужны.
func LoadWorker() (*Config, error) {
	return load(validateDispatch, func(cfg *Config) error {
		return validateKafka(&cfg.Kafka)
	})
}

// LoadDatabase - только подключение к базе, для миграций.
func LoadDatabase() (*Config, error) {
	return load(func(cfg *Config) error {
		return validateDatabase(&cfg.Database)
	})
}

func load(validators ...func(cfg *Config) error) (*Config, error) {
	cfg, err := loadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("environment loading: %w", err)
	}

	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("validation: %w", err)
		}
	}
	return cfg, nil
}

func loadFromEnv() (*Config, error) {
	reconcileInterval, err := osGetEnvDuration("BACKGROUND_OFFER_RECONCILE_INTERVAL", defaultOfferReconcileInterval)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	reconcileGrace, err := osGetEnvDuration("BACKGROUND_OFFER_RECONCILE_GRACE", defaultOfferReconcileGrace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	gcInterval, err := osGetEnvDuration("BACKGROUND_DISPATCH_GC_INTERVAL", defaultDispatchGCInterval)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	limiterCleanup, err := osGetEnvDuration("BACKGROUND_LIMITER_CLEANUP_INTERVAL", defaultLimiterCleanupInterval)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	offerWindow, err := osGetEnvDuration("DISPATCH_OFFER_WINDOW", defaultOfferWindow)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	maxRejections, err := osGetInt("DISPATCH_MAX_REJECTIONS", defaultMaxRejections)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	clearTimeout, err := osGetEnvDuration("DISPATCH_CLEAR_TIMEOUT", defaultClearTimeout)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	defaultRadius, err := osGetFloat("DISPATCH_DEFAULT_RADIUS_METERS", defaultRadiusMeters)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	resultRetention, err := osGetEnvDuration("DISPATCH_RESULT_RETENTION", defaultResultRetention)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	dispatchShutdown, err := osGetEnvDuration("DISPATCH_SHUTDOWN_TIMEOUT", defaultDispatchShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	saramaOffsetsAutocommit, err := osGetBool("KAFKA_SARAMA_OFFSETS_AUTOCOMMIT")
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	taskCreatedTimeout, err := osGetEnvDuration("KAFKA_HANDLER_TASK_CREATED_PROCESS_TIMEOUT", defaultTaskCreatedTimeout)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	requestTimeout, err := osGetEnvDuration("MIDDLEWARE_REQUEST_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	rateLimiterQPS, err := osGetInt("MIDDLEWARE_RATE_LIMIT_QPS", 0)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	rateLimiterBurst, err := osGetInt("MIDDLEWARE_RATE_LIMIT_BURST", 0)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	rateLimiterIdle, err := osGetEnvDuration("MIDDLEWARE_RATE_LIMIT_IDLE", defaultRateLimiterIdle)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	pprofEnabled, err := osGetBool("PPROF_ENABLED")
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	maxConns, err := osGetInt("POSTGRES_MAX_CONNS", defaultMaxConns)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	minConns, err := osGetInt("POSTGRES_MIN_CONNS", defaultMinConns)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &Config{
		LogLevel: os.Getenv("LOG_LEVEL"),
		Tasks: Tasks{
			OfferReconcileInterval: reconcileInterval,
			OfferReconcileGrace:    reconcileGrace,
			DispatchGCInterval:     gcInterval,
			LimiterCleanupInterval: limiterCleanup,
		},
		Dispatch: Dispatch{
			OfferWindow:         offerWindow,
			MaxRejections:       maxRejections,
			ClearTimeout:        clearTimeout,
			DefaultRadiusMeters: defaultRadius,
			ResultRetention:     resultRetention,
			ShutdownTimeout:     dispatchShutdown,
		},
		Server: HTTPServer{
			Port:             os.Getenv("PORT"),
			RequestTimeout:   requestTimeout,
			RateLimiterQPS:   rateLimiterQPS,
			RateLimiterBurst: rateLimiterBurst,
			RateLimiterIdle:  rateLimiterIdle,
			PprofEnabled:     pprofEnabled,
			PprofPort:        os.Getenv("PPROF_PORT"),
		},
		Database: Database{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     os.Getenv("POSTGRES_PORT"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   os.Getenv("POSTGRES_DB"),
			SSLMode:  os.Getenv("POSTGRES_SSLMODE"),
			MaxConns: int32(maxConns), //nolint:gosec // проверяется в validateDatabase
			MinConns: int32(minConns), //nolint:gosec // проверяется в validateDatabase
		},
		Kafka: Kafka{
			Brokers:             os.Getenv("KAFKA_BROKERS"),
			TaskCreatedTopic:    os.Getenv("KAFKA_TOPIC_TASK_CREATED"),
			DispatchResultTopic: os.Getenv("KAFKA_TOPIC_DISPATCH_RESULT"),
			ConsumerGroup:       os.Getenv("KAFKA_CONSUMER_GROUP"),
			PortHealthcheck:     os.Getenv("KAFKA_HTTP_HEALTHCHECK_PORT"),
			PortGRPCHealth:      os.Getenv("KAFKA_GRPC_HEALTH_PORT"),
			Sarama: Sarama{
				Version:                   os.Getenv("KAFKA_SARAMA_VERSION"),
				ConsumerOffsetsAutocommit: saramaOffsetsAutocommit,
			},
			Handlers: KafkaHandlers{
				TaskCreated: TaskCreated{
					ProcessTimeout: taskCreatedTimeout,
				},
			},
		},
	}, nil
}

func validateServer(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server port is required (set via PORT env variable)")
	}
	if cfg.Server.RequestTimeout == time.Duration(0) {
		return errors.New("MIDDLEWARE_REQUEST_TIMEOUT is required")
	}
	if cfg.Server.RateLimiterQPS == 0 {
		return errors.New("MIDDLEWARE_RATE_LIMIT_QPS is required")
	}
	if cfg.Server.RateLimiterBurst == 0 {
		return errors.New("MIDDLEWARE_RATE_LIMIT_BURST is required")
	}
	if cfg.Server.PprofPort == "" && cfg.Server.PprofEnabled {
		return errors.New("PprofPort is required (set via PPROF_PORT env variable)")
	}
	if cfg.Tasks.LimiterCleanupInterval <= 0 {
		return errors.New("BACKGROUND_LIMITER_CLEANUP_INTERVAL must be positive")
	}
	return nil
}

func validateDispatch(cfg *Config) error {
	if err := validateDatabase(&cfg.Database); err != nil {
		return err
	}

	if cfg.Dispatch.OfferWindow <= 0 {
		return errors.New("DISPATCH_OFFER_WINDOW must be positive")
	}
	if cfg.Dispatch.MaxRejections <= 0 {
		return errors.New("DISPATCH_MAX_REJECTIONS must be positive")
	}
	if cfg.Dispatch.DefaultRadiusMeters <= 0 {
		return errors.New("DISPATCH_DEFAULT_RADIUS_METERS must be positive")
	}

	if cfg.Tasks.OfferReconcileInterval <= 0 {
		return errors.New("BACKGROUND_OFFER_RECONCILE_INTERVAL must be positive")
	}
	if cfg.Tasks.DispatchGCInterval <= 0 {
		return errors.New("BACKGROUND_DISPATCH_GC_INTERVAL must be positive")
	}

	return nil
}

func validateDatabase(db *Database) error {
	if db.Host == "" {
		return errors.New("POSTGRES_HOST is required")
	}
	if db.Port == "" {
		return errors.New("POSTGRES_PORT is required")
	}
	if db.User == "" {
		return errors.New("POSTGRES_USER is required")
	}
	if db.Password == "" {
		return errors.New("POSTGRES_PASSWORD is required")
	}
	if db.DBName == "" {
		return errors.New("POSTGRES_DB is required")
	}
	if db.SSLMode == "" {
		return errors.New("POSTGRES_SSLMODE is required")
	}
	if db.MaxConns <= 0 || db.MinConns < 0 || db.MinConns > db.MaxConns {
		return fmt.Errorf("invalid pool size: min %d, max %d", db.MinConns, db.MaxConns)
	}
	return nil
}

func validateKafka(k *Kafka) error {
	if k.Brokers == "" {
		return errors.New("KAFKA_BROKERS is required")
	}
	if k.TaskCreatedTopic == "" {
		return errors.New("KAFKA_TOPIC_TASK_CREATED is required")
	}
	if k.DispatchResultTopic == "" {
		return errors.New("KAFKA_TOPIC_DISPATCH_RESULT is required")
	}
	if k.ConsumerGroup == "" {
		return errors.New("KAFKA_CONSUMER_GROUP is required")
	}
	if k.PortHealthcheck == "" {
		return errors.New("KAFKA_HTTP_HEALTHCHECK_PORT is required")
	}
	if k.PortGRPCHealth == "" {
		return errors.New("KAFKA_GRPC_HEALTH_PORT is required")
	}
	if k.Sarama.Version == "" {
		return errors.New("KAFKA_SARAMA_VERSION is required")
	}
	if k.Handlers.TaskCreated.ProcessTimeout == time.Duration(0) {
		return errors.New("KAFKA_HANDLER_TASK_CREATED_PROCESS_TIMEOUT is required")
	}
	return nil
}

func osGetInt(s string, def int) (int, error) {
	val := os.Getenv(s)
	if val == "" {
		return def, nil
	}

	res, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid int format for %s=%q: %w", s, val, err)
	}
	return res, nil
}

func osGetFloat(s string, def float64) (float64, error) {
	val := os.Getenv(s)
	if val == "" {
		return def, nil
	}

	res, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float format for %s=%q: %w", s, val, err)
	}
	return res, nil
}

func osGetEnvDuration(s string, def time.Duration) (time.Duration, error) {
	val := os.Getenv(s)
	if val == "" {
		return def, nil
	}

	res, err := time.ParseDuration(val)
	if err != nil {
		return time.Duration(0), fmt.Errorf("invalid duration format for %s=%q: %w", s, val, err)
	}
	return res, nil
}

func osGetBool(s string) (bool, error) {
	val := os.Getenv(s)
	if val == "" {
		return false, nil
	}

	res, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid bool format for %s=%q: %w", s, val, err)
	}
	return res, nil
}
