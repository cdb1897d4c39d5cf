//go:generate mockgen -source=contract.go -destination=./contract_mocks_test.go -package=dispatch_gc_test
package dispatch_gc

import (
	"context"

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
	EvictFinished(ctx context.Context) (int64, error)
}
