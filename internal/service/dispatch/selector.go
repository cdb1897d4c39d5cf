package dispatch

import (
	"math/rand/v2"

	"courier-dispatch/internal/entities"
)

// ShuffleFunc совпадает по сигнатуре с rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// Selector превращает результат гео запроса в порядок офферов.
// Порядок случайный, чтобы не зависеть от порядка бакетов geohash и не морить голодом
// курьеров из "дальних" ячеек.
type Selector struct {
	shuffle ShuffleFunc
}

func NewSelector() *Selector {
	return &Selector{shuffle: rand.Shuffle}
}

// NewSelectorWithShuffle - для детерминированных тестов.
func NewSelectorWithShuffle(shuffle ShuffleFunc) *Selector {
	return &Selector{shuffle: shuffle}
}

func (s *Selector) Order(sessions []entities.CourierSession) []string {
	seen := make(map[string]struct{}, len(sessions))
	ids := make([]string, 0, len(sessions))
	for i := range sessions {
		id := sessions[i].CourierID
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	s.shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	return ids
}

// KeepOrder не перемешивает кандидатов.
func KeepOrder(int, func(i, j int)) {}
