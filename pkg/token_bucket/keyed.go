package token_bucket

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Keyed - отдельный бакет на каждый ключ (курьер, адрес клиента).
// Один шумный клиент не выедает лимит у остальных.
type Keyed struct {
	clock      clockwork.Clock
	capacity   int
	refillRate float64

	mu      sync.Mutex
	buckets map[string]*Bucket
}

func NewKeyed(clock clockwork.Clock, capacity int, refillRate float64) *Keyed {
	return &Keyed{
		clock:      clock,
		capacity:   capacity,
		refillRate: refillRate,
		buckets:    make(map[string]*Bucket),
	}
}

func (k *Keyed) Allow(key string) bool {
	k.mu.Lock()
	bucket, ok := k.buckets[key]
	if !ok {
		bucket = NewBucket(k.clock, k.capacity, k.refillRate)
		k.buckets[key] = bucket
	}
	k.mu.Unlock()

	return bucket.Allow()
}

// Evict удаляет полные бакеты, к которым не обращались дольше idle.
// Возвращает число удаленных ключей.
func (k *Keyed) Evict(idle time.Duration) int {
	threshold := k.clock.Now().Add(-idle)

	k.mu.Lock()
	defer k.mu.Unlock()

	evicted := 0
	for key, bucket := range k.buckets {
		lastUsed, full := bucket.idleSince()
		if full && lastUsed.Before(threshold) {
			delete(k.buckets, key)
			evicted++
		}
	}
	return evicted
}

func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}
