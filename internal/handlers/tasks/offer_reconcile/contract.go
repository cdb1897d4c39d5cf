//go:generate mockgen -source=contract.go -destination=./contract_mocks_test.go -package=offer_reconcile_test
package offer_reconcile

import (
	"context"
	"time"

	"courier-dispatch/pkg/logger"
)

type taskLogger interface {
	Debug(msg string, fields ...logger.Field)
	Info(msg string, fields ...logger.Field)
	Warn(msg string, fields ...logger.Field)
	Error(msg string, fields ...logger.Field)
	With(fields ...logger.Field) logger.Logger
}

type Service interface {
	ReconcileExpiredOffers(ctx context.Context, grace time.Duration) (int64, error)
}
