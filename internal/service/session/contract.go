//go:generate mockgen -source=contract.go -destination=./contract_mocks_test.go -package=session_test
package session

import (
	"context"
	"time"

	"courier-dispatch/internal/entities"
)

type Repository interface {
	Get(ctx context.Context, courierID string) (*entities.CourierSession, error)
	Set(ctx context.Context, courierID string, modify entities.SessionModify, merge bool) error
	CompareAndSet(ctx context.Context, courierID string, expectedVersion int64, modify entities.SessionModify) error
	Delete(ctx context.Context, courierID string) error

	// ListExpiredOffers возвращает сессии с неподтвержденным оффером, дедлайн которого раньше before.
	ListExpiredOffers(ctx context.Context, before time.Time) ([]entities.CourierSession, error)
}

type EventRepository interface {
	AppendTaskEvent(ctx context.Context, event entities.TaskEvent) error
}

type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type Clock interface {
	Now() time.Time
}
