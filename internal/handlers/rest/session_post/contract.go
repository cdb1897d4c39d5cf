//go:generate mockgen -source=contract.go -destination=./contract_mocks_test.go -package=session_post_test
package session_post

import (
	"context"

	"courier-dispatch/internal/entities"
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
	GoOnline(ctx context.Context, courierID string, location entities.GeoPoint) (*entities.CourierSession, error)
}
