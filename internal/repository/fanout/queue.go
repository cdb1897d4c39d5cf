// Package fanout доставляет изменения сессии подписчику в порядке записи
// из отдельной горутины, чтобы медленный подписчик не держал хранилище.
package fanout

import (
	"sync"

	"courier-dispatch/internal/entities"
)

type change struct {
	session *entities.CourierSession
	err     error
}

type Queue struct {
	onChange entities.SessionChangeFunc

	mu      sync.Mutex
	pending []change
	wake    chan struct{}
	done    chan struct{}
	stopped bool
}

func NewQueue(onChange entities.SessionChangeFunc) *Queue {
	q := &Queue{
		onChange: onChange,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go q.run()
	return q
}

// Push ставит снимок в очередь. nil снимок - сессия удалена.
func (q *Queue) Push(session *entities.CourierSession, err error) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, change{session: session, err: err})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Stop не ждет доставки, уже начатый вызов onChange может завершиться после Stop.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.pending = nil
	q.mu.Unlock()
	close(q.done)
}

func (q *Queue) run() {
	for {
		select {
		case <-q.done:
			return
		case <-q.wake:
		}

		for {
			q.mu.Lock()
			if q.stopped || len(q.pending) == 0 {
				q.mu.Unlock()
				break
			}
			next := q.pending[0]
			q.pending = q.pending[1:]
			q.mu.Unlock()

			q.onChange(next.session, next.err)
		}
	}
}

// Registry - подписчики по ID курьера.
type Registry struct {
	mu     sync.Mutex
	nextID uint64
	queues map[string]map[uint64]*Queue
}

func NewRegistry() *Registry {
	return &Registry{queues: make(map[string]map[uint64]*Queue)}
}

// Add регистрирует очередь и возвращает функцию отписки. Она идемпотентна.
func (r *Registry) Add(courierID string, q *Queue) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	if r.queues[courierID] == nil {
		r.queues[courierID] = make(map[uint64]*Queue)
	}
	r.queues[courierID][id] = q
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.queues[courierID], id)
			if len(r.queues[courierID]) == 0 {
				delete(r.queues, courierID)
			}
			r.mu.Unlock()
			q.Stop()
		})
	}
}

func (r *Registry) Queues(courierID string) []*Queue {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*Queue, 0, len(r.queues[courierID]))
	for _, q := range r.queues[courierID] {
		result = append(result, q)
	}
	return result
}

func (r *Registry) CourierIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]string, 0, len(r.queues))
	for id := range r.queues {
		result = append(result, id)
	}
	return result
}

// Handle реализует entities.Subscription поверх функции отписки.
type Handle func()

func (h Handle) Unsubscribe() {
	h()
}
