package offer_reconcile

import (
	"context"
	"time"

	"courier-dispatch/pkg/logger"
)

// OfferReconcile снимает офферы, которые остались в сессиях без диспетчера:
// процесс упал или запись не удалось откатить, а дедлайн давно прошел.
type OfferReconcile struct {
	log      taskLogger
	service  Service
	interval time.Duration
	grace    time.Duration
}

func NewOfferReconcile(log taskLogger, service Service, interval, grace time.Duration) *OfferReconcile {
	return &OfferReconcile{
		log:      log,
		service:  service,
		interval: interval,
		grace:    grace,
	}
}

func (o *OfferReconcile) TTL() time.Duration {
	return o.interval
}

func (o *OfferReconcile) Do(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, o.interval)
	defer cancel()

	cleared, err := o.service.ReconcileExpiredOffers(ctxWithTimeout, o.grace)

	if cleared > 0 {
		o.log.With(
			logger.NewField("cleared_offers", cleared),
		).Warn("orphaned offers cleared")
	}

	return err
}

func (o *OfferReconcile) Info() string {
	return "offer reconcile"
}
