package config

import "time"

const (
	defaultOfferWindow             = 32 * time.Second
	defaultMaxRejections           = 3
	defaultClearTimeout            = 5 * time.Second
	defaultRadiusMeters            = 3000
	defaultResultRetention         = 15 * time.Minute
	defaultDispatchShutdownTimeout = 10 * time.Second

	defaultOfferReconcileInterval = 30 * time.Second
	defaultOfferReconcileGrace    = 30 * time.Second
	defaultDispatchGCInterval     = time.Minute
	defaultLimiterCleanupInterval = time.Minute
	defaultRateLimiterIdle        = 10 * time.Minute

	defaultTaskCreatedTimeout = 5 * time.Second

	defaultMaxConns = 10
	defaultMinConns = 2
)
