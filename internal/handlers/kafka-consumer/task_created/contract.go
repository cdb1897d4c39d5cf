//go:generate mockgen -source=contract.go -destination=./contract_mocks_test.go -package=task_created_test
package task_created

import (
	"context"

	"courier-dispatch/internal/entities"
	"courier-dispatch/internal/service/dispatch"
	"courier-dispatch/pkg/logger"
)

type handlerLogger interface {
	Debug(msg string, fields ...logger.Field)
	Info(msg string, fields ...logger.Field)
	Warn(msg string, fields ...logger.Field)
	Error(msg string, fields ...logger.Field)
	With(fields ...logger.Field) logger.Logger
}

type Service interface {
	Submit(ctx context.Context, req dispatch.Request, onDone dispatch.Callback) (entities.DispatchResult, error)
}

// Publisher отправляет итог диспетчеризации в топик результатов.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}
