//go:generate mockgen -source=contract.go -destination=./contract_mocks_test.go -package=geoindex_test
package geoindex

import (
	"context"

	"courier-dispatch/internal/entities"
)

type RangeScanner interface {
	// RangeScan возвращает сессии, geohash которых лежит в [start, end].
	RangeScan(ctx context.Context, start, end string) ([]entities.CourierSession, error)
}
