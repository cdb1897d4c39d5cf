package geoindex

import (
	"context"
	"fmt"
	"math"
	"sort"

	"courier-dispatch/internal/entities"
	"courier-dispatch/pkg/geohash"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"golang.org/x/sync/errgroup"
)

const defaultScanParallelism = 4

// Index ищет свободных курьеров в радиусе через range scan по geohash.
// Результат - снимок на момент чтения, занятость кандидата перепроверяется при оффере.
type Index struct {
	scanner     RangeScanner
	parallelism int
}

func New(scanner RangeScanner) *Index {
	return &Index{
		scanner:     scanner,
		parallelism: defaultScanParallelism,
	}
}

func (i *Index) QueryWithinRadius(ctx context.Context, center entities.GeoPoint, radiusMeters float64) ([]entities.CourierSession, error) {
	if !center.Valid() {
		return nil, ErrInvalidCenter
	}
	if math.IsNaN(radiusMeters) || math.IsInf(radiusMeters, 0) || radiusMeters <= 0 {
		return nil, ErrInvalidRadius
	}

	bounds := geohash.BoundsForRadius(center.Lat, center.Lng, radiusMeters)
	scanned := make([][]entities.CourierSession, len(bounds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.parallelism)
	for idx, bound := range bounds {
		g.Go(func() error {
			sessions, err := i.scanner.RangeScan(gctx, bound.Start, bound.End)
			if err != nil {
				return fmt.Errorf("range scan [%s, %s]: %w", bound.Start, bound.End, err)
			}
			scanned[idx] = sessions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	origin := orb.Point{center.Lng, center.Lat}
	seen := make(map[string]struct{})
	result := make([]entities.CourierSession, 0)
	for _, sessions := range scanned {
		for _, s := range sessions {
			if _, dup := seen[s.CourierID]; dup {
				continue
			}
			seen[s.CourierID] = struct{}{}

			if s.Busy || s.AssignedTask != nil {
				continue
			}
			if geo.DistanceHaversine(origin, orb.Point{s.Location.Lng, s.Location.Lat}) > radiusMeters {
				continue
			}
			result = append(result, s)
		}
	}

	sort.Slice(result, func(a, b int) bool {
		return result[a].CourierID < result[b].CourierID
	})
	return result, nil
}
