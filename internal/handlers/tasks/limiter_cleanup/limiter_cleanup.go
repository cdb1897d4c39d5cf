package limiter_cleanup

import (
	"context"
	"time"
)

type Limiter interface {
	Evict(idle time.Duration) int
}

// LimiterCleanup удаляет бакеты rate limiter'а клиентов, не приходивших дольше idle.
type LimiterCleanup struct {
	limiter  Limiter
	interval time.Duration
	idle     time.Duration
}

func NewLimiterCleanup(limiter Limiter, interval, idle time.Duration) *LimiterCleanup {
	return &LimiterCleanup{
		limiter:  limiter,
		interval: interval,
		idle:     idle,
	}
}

func (l *LimiterCleanup) TTL() time.Duration {
	return l.interval
}

func (l *LimiterCleanup) Do(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.limiter.Evict(l.idle)
	return nil
}

func (l *LimiterCleanup) Info() string {
	return "rate limiter cleanup"
}
