//go:generate mockgen -source=contract.go -destination=./contract_mocks_test.go -package=session_finish_post_test
package session_finish_post

import (
	"context"

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
	FinishTask(ctx context.Context, courierID, taskID string) error
}
