package dispatch_gc

import (
	"context"
	"time"

	"courier-dispatch/pkg/logger"
)

// DispatchGC выбрасывает из реестра завершенные диспетчеризации,
// результат которых уже никто не заберет.
type DispatchGC struct {
	log      taskLogger
	service  Service
	interval time.Duration
}

func NewDispatchGC(log taskLogger, service Service, interval time.Duration) *DispatchGC {
	return &DispatchGC{
		log:      log,
		service:  service,
		interval: interval,
	}
}

func (d *DispatchGC) TTL() time.Duration {
	return d.interval
}

func (d *DispatchGC) Do(ctx context.Context) error {
	evicted, err := d.service.EvictFinished(ctx)

	if evicted > 0 {
		d.log.With(
			logger.NewField("evicted_dispatches", evicted),
		).Info("dispatch registry cleanup")
	}

	return err
}

func (d *DispatchGC) Info() string {
	return "dispatch gc"
}
