//go:generate mockgen -source=contract.go -destination=./contract_mocks_test.go -package=dispatch_test
package dispatch

import (
	"context"

	"courier-dispatch/internal/entities"
	"courier-dispatch/pkg/logger"
)

type SessionStore interface {
	Get(ctx context.Context, courierID string) (*entities.CourierSession, error)
	Set(ctx context.Context, courierID string, modify entities.SessionModify, merge bool) error
	CompareAndSet(ctx context.Context, courierID string, expectedVersion int64, modify entities.SessionModify) error
	Subscribe(ctx context.Context, courierID string, onChange entities.SessionChangeFunc) (entities.Subscription, error)
}

type SessionIndex interface {
	QueryWithinRadius(ctx context.Context, center entities.GeoPoint, radiusMeters float64) ([]entities.CourierSession, error)
}

type dispatchLogger interface {
	Debug(msg string, fields ...logger.Field)
	Info(msg string, fields ...logger.Field)
	Warn(msg string, fields ...logger.Field)
	Error(msg string, fields ...logger.Field)
	With(fields ...logger.Field) logger.Logger
}
