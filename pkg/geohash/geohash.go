// Package geohash строит ключи сессий курьеров и интервалы range scan
// для поиска по радиусу.
package geohash

import (
	"math"
	"sort"

	mgeohash "github.com/mmcloughlin/geohash"
)

const (
	// SessionPrecision - точность ключа, с которой сессия пишется в хранилище.
	SessionPrecision uint = 10

	maxQueryPrecision uint = 9

	metersPerDegreeLat = 111_320.0

	// '~' лексикографически больше любого символа base32 алфавита geohash
	upperSuffix = "~"
)

// Bound - замкнутый интервал ключей [Start, End] для range scan.
type Bound struct {
	Start string
	End   string
}

// FullRange покрывает все ключи, используется когда круг не влезает ни в одну ячейку.
var FullRange = Bound{Start: "0", End: upperSuffix}

func Encode(lat, lng float64) string {
	return mgeohash.EncodeWithPrecision(lat, lng, SessionPrecision)
}

// BoundsForRadius возвращает интервалы ключей, вместе покрывающие круг
// радиуса radiusMeters вокруг (lat, lng).
//
// Выбирается самая мелкая точность, у которой ячейка не меньше радиуса по обеим осям,
// тогда круг гарантированно лежит внутри центральной ячейки и её 8 соседей.
// Результат - надмножество круга, фильтрация по настоящему расстоянию на вызывающей стороне.
func BoundsForRadius(lat, lng, radiusMeters float64) []Bound {
	if radiusMeters <= 0 {
		return nil
	}

	precision, ok := precisionForRadius(lat, lng, radiusMeters)
	if !ok {
		return []Bound{FullRange}
	}

	center := mgeohash.EncodeWithPrecision(lat, lng, precision)
	cells := append([]string{center}, mgeohash.Neighbors(center)...)

	seen := make(map[string]struct{}, len(cells))
	unique := make([]string, 0, len(cells))
	for _, c := range cells {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		unique = append(unique, c)
	}
	sort.Strings(unique)

	bounds := make([]Bound, 0, len(unique))
	for _, c := range unique {
		bounds = append(bounds, Bound{Start: c, End: c + upperSuffix})
	}
	return bounds
}

func precisionForRadius(lat, lng, radiusMeters float64) (uint, bool) {
	// ширина ячейки по долготе сужается к полюсам, считаем по самой "узкой" широте круга
	farLat := math.Min(90, math.Abs(lat)+radiusMeters/metersPerDegreeLat)
	lngScale := math.Cos(farLat * math.Pi / 180)

	for p := maxQueryPrecision; p >= 1; p-- {
		box := mgeohash.BoundingBox(mgeohash.EncodeWithPrecision(lat, lng, p))

		height := (box.MaxLat - box.MinLat) * metersPerDegreeLat
		width := (box.MaxLng - box.MinLng) * metersPerDegreeLat * lngScale
		if height >= radiusMeters && width >= radiusMeters {
			return p, true
		}
	}
	return 0, false
}

// Contains сообщает, попадает ли ключ в один из интервалов.
func Contains(bounds []Bound, key string) bool {
	for _, b := range bounds {
		if key >= b.Start && key <= b.End {
			return true
		}
	}
	return false
}
