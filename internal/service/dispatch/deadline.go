package dispatch

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DeadlineScheduler держит не больше одного живого таймера на оффер.
// Каждый Arm/Cancel увеличивает поколение, срабатывание старого поколения
// вызывающая сторона отбрасывает через IsCurrent.
type DeadlineScheduler struct {
	clock clockwork.Clock
	fire  func(generation uint64)

	mu         sync.Mutex
	timer      clockwork.Timer
	generation uint64
}

func NewDeadlineScheduler(clock clockwork.Clock, fire func(generation uint64)) *DeadlineScheduler {
	return &DeadlineScheduler{
		clock: clock,
		fire:  fire,
	}
}

// Arm перезапускает таймер на d. Отрицательный d срабатывает сразу.
func (s *DeadlineScheduler) Arm(d time.Duration) uint64 {
	if d < 0 {
		d = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.generation++
	generation := s.generation
	s.timer = s.clock.AfterFunc(d, func() {
		s.fire(generation)
	})
	return generation
}

func (s *DeadlineScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.generation++
}

func (s *DeadlineScheduler) IsCurrent(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil && s.generation == generation
}

func (s *DeadlineScheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
