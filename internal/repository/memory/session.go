// Package memory - хранилище сессий в памяти процесса с тем же контрактом,
// что и postgres репозиторий: условная запись по версии, range scan по geohash
// и подписка на изменения документа.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"courier-dispatch/internal/entities"
	"courier-dispatch/internal/repository/fanout"
	"courier-dispatch/internal/service/session"
	"courier-dispatch/pkg/geohash"

	"github.com/jonboulle/clockwork"
)

type SessionStore struct {
	clock clockwork.Clock

	mu       sync.Mutex
	sessions map[string]*entities.CourierSession
	subs     *fanout.Registry
	events   []entities.TaskEvent
	writes   map[string]int
}

func NewSessionStore(clock clockwork.Clock) *SessionStore {
	return &SessionStore{
		clock:    clock,
		sessions: make(map[string]*entities.CourierSession),
		subs:     fanout.NewRegistry(),
		writes:   make(map[string]int),
	}
}

func (s *SessionStore) Get(ctx context.Context, courierID string) (*entities.CourierSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[courierID]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return current.Clone(), nil
}

func (s *SessionStore) Set(ctx context.Context, courierID string, modify entities.SessionModify, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	current, ok := s.sessions[courierID]
	switch {
	case merge && !ok:
		s.mu.Unlock()
		return session.ErrSessionNotFound
	case !merge:
		var version int64
		if ok {
			version = current.Version
		}
		current = &entities.CourierSession{CourierID: courierID, Version: version}
	}
	s.apply(current, modify)
	s.commit(courierID, current)
	return nil
}

func (s *SessionStore) CompareAndSet(ctx context.Context, courierID string, expectedVersion int64, modify entities.SessionModify) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	current, ok := s.sessions[courierID]
	if !ok {
		s.mu.Unlock()
		return session.ErrSessionNotFound
	}
	if current.Version != expectedVersion {
		s.mu.Unlock()
		return session.ErrVersionConflict
	}
	updated := current.Clone()
	s.apply(updated, modify)
	s.commit(courierID, updated)
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, courierID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.sessions[courierID]; !ok {
		s.mu.Unlock()
		return session.ErrSessionNotFound
	}
	delete(s.sessions, courierID)
	s.writes[courierID]++
	for _, q := range s.subs.Queues(courierID) {
		q.Push(nil, nil)
	}
	s.mu.Unlock()
	return nil
}

// RangeScan возвращает сессии с geohash в [start, end], упорядоченные по ключу.
func (s *SessionStore) RangeScan(ctx context.Context, start, end string) ([]entities.CourierSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]entities.CourierSession, 0)
	for _, current := range s.sessions {
		if current.Geohash >= start && current.Geohash <= end {
			result = append(result, *current.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Geohash < result[j].Geohash
	})
	return result, nil
}

func (s *SessionStore) ListExpiredOffers(ctx context.Context, before time.Time) ([]entities.CourierSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]entities.CourierSession, 0)
	for _, current := range s.sessions {
		if !current.Busy && current.PendingOffer() && current.AssignedTask.ConfirmationDeadline.Before(before) {
			result = append(result, *current.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CourierID < result[j].CourierID
	})
	return result, nil
}

// Subscribe сразу доставляет текущее состояние документа, затем каждое изменение по порядку.
// После Unsubscribe может прийти не более одного уже начатого уведомления.
func (s *SessionStore) Subscribe(ctx context.Context, courierID string, onChange entities.SessionChangeFunc) (entities.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := fanout.NewQueue(onChange)

	s.mu.Lock()
	unsubscribe := s.subs.Add(courierID, q)
	// начальный снимок кладем под локом, чтобы он гарантированно шел раньше следующих изменений
	q.Push(s.sessions[courierID].Clone(), nil)
	s.mu.Unlock()

	return fanout.Handle(unsubscribe), nil
}

func (s *SessionStore) AppendTaskEvent(ctx context.Context, event entities.TaskEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// TaskEvents - копия журнала событий, для проверок в тестах.
func (s *SessionStore) TaskEvents() []entities.TaskEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]entities.TaskEvent, len(s.events))
	copy(result, s.events)
	return result
}

// Writes - сколько раз писали в сессию курьера.
func (s *SessionStore) Writes(courierID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[courierID]
}

func (s *SessionStore) apply(target *entities.CourierSession, modify entities.SessionModify) {
	if modify.Location != nil {
		target.Location = *modify.Location
		target.Geohash = geohash.Encode(modify.Location.Lat, modify.Location.Lng)
	}
	if modify.Busy != nil {
		target.Busy = *modify.Busy
	}
	if modify.AssignedTask != nil {
		target.AssignedTask = modify.AssignedTask.Clone()
		taskID := modify.AssignedTask.ID
		target.AssignedTaskID = &taskID
	}
	if modify.ClearAssignedTask {
		target.AssignedTask = nil
		target.AssignedTaskID = nil
	}
}

// commit вызывается под локом и отпускает его.
func (s *SessionStore) commit(courierID string, updated *entities.CourierSession) {
	updated.Version++
	updated.UpdatedAt = s.clock.Now().UTC()
	s.sessions[courierID] = updated
	s.writes[courierID]++

	for _, q := range s.subs.Queues(courierID) {
		q.Push(updated.Clone(), nil)
	}
	s.mu.Unlock()
}
