//go:generate mockgen -source=contract.go -destination=./contract_mocks_test.go -package=session_location_put_test
package session_location_put

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
	UpdateLocation(ctx context.Context, courierID string, location entities.GeoPoint) error
}
