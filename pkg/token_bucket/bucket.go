package token_bucket

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Bucket - классический token bucket: capacity токенов, пополнение refillRate в секунду.
// Дробные токены копятся, поэтому медленное пополнение не теряется на частых вызовах.
type Bucket struct {
	clock      clockwork.Clock
	capacity   float64
	refillRate float64

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	lastUsed   time.Time
}

func NewBucket(clock clockwork.Clock, capacity int, refillRate float64) *Bucket {
	return &Bucket{
		clock:      clock,
		capacity:   float64(capacity),
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: clock.Now(),
		lastUsed:   clock.Now(),
	}
}

func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	b.lastUsed = b.lastRefill

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// idleSince - время последнего запроса и признак того, что бакет снова полон.
// Полный бакет без трафика можно выбросить: новый будет в том же состоянии.
func (b *Bucket) idleSince() (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	return b.lastUsed, b.tokens >= b.capacity
}

func (b *Bucket) refill() {
	now := b.clock.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}

	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}
