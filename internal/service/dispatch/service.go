package dispatch

import (
	"context"
	"sync"
	"time"

	"courier-dispatch/internal/entities"
	"courier-dispatch/pkg/logger"

	"github.com/jonboulle/clockwork"
)

// Service - реестр запущенных диспетчеризаций для REST и kafka обработчиков.
// Диспетчеризации живут дольше запроса, который их создал, поэтому
// контекст запроса от них отвязывается.
type Service struct {
	dispatcher *Dispatcher
	clock      clockwork.Clock
	log        dispatchLogger
	retention  time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

type entry struct {
	handle     *Handle
	finishedAt *time.Time
}

func NewService(dispatcher *Dispatcher, clock clockwork.Clock, log dispatchLogger, retention time.Duration) *Service {
	return &Service{
		dispatcher: dispatcher,
		clock:      clock,
		log:        log,
		retention:  retention,
		entries:    make(map[string]*entry),
	}
}

// Start запускает диспетчеризацию. onDone может быть nil.
func (s *Service) Start(ctx context.Context, req Request, onDone Callback) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrShuttingDown
	}
	// повторная доставка той же задачи не должна запускать второй поиск курьера
	if req.Task != nil {
		for _, e := range s.entries {
			if e.finishedAt == nil && e.handle.TaskID() == req.Task.ID {
				return nil, ErrAlreadyDispatching
			}
		}
	}

	// колбэк берет тот же мьютекс, поэтому регистрация всегда раньше завершения
	handle, err := s.dispatcher.Dispatch(context.WithoutCancel(ctx), req, func(result entities.DispatchResult) {
		s.markFinished(result.DispatchID)
		if onDone != nil {
			onDone(result)
		}
	})
	if err != nil {
		return nil, err
	}

	s.entries[handle.ID()] = &entry{handle: handle}
	s.log.Info("dispatch started",
		logger.NewField("dispatch_id", handle.ID()),
		logger.NewField("task_id", handle.TaskID()),
	)
	return handle, nil
}

// Submit запускает диспетчеризацию и возвращает снимок ее начального состояния.
func (s *Service) Submit(ctx context.Context, req Request, onDone Callback) (entities.DispatchResult, error) {
	handle, err := s.Start(ctx, req, onDone)
	if err != nil {
		return entities.DispatchResult{}, err
	}
	result, _ := handle.Result()
	return result, nil
}

func (s *Service) Get(_ context.Context, dispatchID string) (entities.DispatchResult, error) {
	s.mu.Lock()
	e, ok := s.entries[dispatchID]
	s.mu.Unlock()

	if !ok {
		return entities.DispatchResult{}, ErrDispatchNotFound
	}
	result, _ := e.handle.Result()
	return result, nil
}

func (s *Service) Cancel(_ context.Context, dispatchID string) error {
	s.mu.Lock()
	e, ok := s.entries[dispatchID]
	s.mu.Unlock()

	if !ok {
		return ErrDispatchNotFound
	}
	e.handle.Cancel()
	return nil
}

// EvictFinished удаляет из реестра завершенные диспетчеризации старше retention.
func (s *Service) EvictFinished(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	threshold := s.clock.Now().UTC().Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted int64
	for id, e := range s.entries {
		if e.finishedAt != nil && e.finishedAt.Before(threshold) {
			delete(s.entries, id)
			evicted++
		}
	}
	return evicted, nil
}

func (s *Service) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var running int
	for _, e := range s.entries {
		if e.finishedAt == nil {
			running++
		}
	}
	return running
}

// Shutdown перестает принимать новые диспетчеризации, отменяет текущие
// и ждет их завершения, пока жив ctx.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	handles := make([]*Handle, 0, len(s.entries))
	for _, e := range s.entries {
		if e.finishedAt == nil {
			handles = append(handles, e.handle)
		}
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
	for _, h := range handles {
		select {
		case <-h.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Service) markFinished(dispatchID string) {
	now := s.clock.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[dispatchID]; ok {
		e.finishedAt = &now
	}
}
