package dispatch

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"courier-dispatch/internal/entities"
	"courier-dispatch/pkg/logger"
	"courier-dispatch/pkg/retrier"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultOfferWindow   = 32 * time.Second
	DefaultMaxRejections = 3
	DefaultClearTimeout  = 5 * time.Second

	MaxOfferWindow = time.Hour
)

type Config struct {
	OfferWindow   time.Duration
	MaxRejections int
	// ClearTimeout ограничивает снятие оффера после отмены диспетчеризации
	ClearTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.OfferWindow <= 0 {
		c.OfferWindow = DefaultOfferWindow
	}
	if c.MaxRejections <= 0 {
		c.MaxRejections = DefaultMaxRejections
	}
	if c.ClearTimeout <= 0 {
		c.ClearTimeout = DefaultClearTimeout
	}
	return c
}

// Request - одна задача на диспетчеризацию. Нулевые OfferWindow и MaxRejections
// берутся из конфигурации диспетчера.
type Request struct {
	Task          *entities.DeliveryTask
	Origin        entities.GeoPoint
	RadiusMeters  float64
	OfferWindow   time.Duration
	MaxRejections int
}

// Callback вызывается ровно один раз на диспетчеризацию.
type Callback func(result entities.DispatchResult)

type Dispatcher struct {
	store    SessionStore
	index    SessionIndex
	selector *Selector
	retrier  retrier.Retrier
	clock    clockwork.Clock
	log      dispatchLogger
	config   Config
}

func New(
	store SessionStore,
	index SessionIndex,
	selector *Selector,
	retrier retrier.Retrier,
	clock clockwork.Clock,
	log dispatchLogger,
	config Config,
) *Dispatcher {
	return &Dispatcher{
		store:    store,
		index:    index,
		selector: selector,
		retrier:  retrier,
		clock:    clock,
		log:      log,
		config:   config.withDefaults(),
	}
}

func (d *Dispatcher) Config() Config {
	return d.config
}

// Dispatch проверяет запрос и запускает диспетчеризацию в отдельной горутине.
// Отмена ctx отменяет диспетчеризацию. Результат приходит в callback и в Handle.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, callback Callback) (*Handle, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	handle := newHandle(id, req.Task.ID, d.clock.Now().UTC(), cancel)

	go func() {
		defer cancel()

		result := d.run(ctx, id, req)
		// Done закрывается после колбэка: дождавшийся Handle видит и его побочные эффекты
		if callback != nil {
			callback(result)
		}
		handle.finish(result)
	}()

	return handle, nil
}

func validateRequest(req Request) error {
	if req.Task == nil || req.Task.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, ErrInvalidTask)
	}
	if !req.Origin.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, ErrInvalidOrigin)
	}
	if math.IsNaN(req.RadiusMeters) || math.IsInf(req.RadiusMeters, 0) || req.RadiusMeters <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, ErrInvalidRadius)
	}
	if req.OfferWindow < 0 || req.OfferWindow > MaxOfferWindow {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, ErrInvalidOfferWindow)
	}
	if req.MaxRejections < 0 {
		return ErrInvalidRequest
	}
	return nil
}

type Handle struct {
	id        string
	taskID    string
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	mu     sync.Mutex
	result entities.DispatchResult
}

func newHandle(id, taskID string, startedAt time.Time, cancel context.CancelFunc) *Handle {
	return &Handle{
		id:        id,
		taskID:    taskID,
		startedAt: startedAt,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (h *Handle) ID() string {
	return h.id
}

func (h *Handle) TaskID() string {
	return h.taskID
}

// Cancel идемпотентен. Если курьер уже принял оффер, результат останется успешным.
func (h *Handle) Cancel() {
	h.cancel()
}

func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result возвращает итог или состояние running, если диспетчеризация еще идет.
func (h *Handle) Result() (entities.DispatchResult, bool) {
	select {
	case <-h.done:
	default:
		return entities.DispatchResult{
			DispatchID: h.id,
			TaskID:     h.taskID,
			State:      entities.DispatchRunning,
			StartedAt:  h.startedAt,
		}, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, true
}

func (h *Handle) Wait(ctx context.Context) (entities.DispatchResult, error) {
	select {
	case <-h.done:
		result, _ := h.Result()
		return result, nil
	case <-ctx.Done():
		return entities.DispatchResult{}, ctx.Err()
	}
}

func (h *Handle) finish(result entities.DispatchResult) {
	h.mu.Lock()
	h.result = result
	h.mu.Unlock()
	close(h.done)
}

func (d *Dispatcher) run(ctx context.Context, id string, req Request) entities.DispatchResult {
	DispatchesInFlight.Inc()
	defer DispatchesInFlight.Dec()

	r := newOfferRun(d, id, req)
	defer r.close()

	result := r.execute(ctx)
	result.FinishedAt = d.clock.Now().UTC()

	DispatchTotal.WithLabelValues(string(result.State)).Inc()
	DispatchDuration.Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())

	fields := []logger.Field{
		logger.NewField("state", result.State),
		logger.NewField("attempts", len(result.Attempts)),
		logger.NewField("rejections", result.Rejections),
	}
	if result.Err != nil {
		fields = append(fields, logger.NewField("error", result.Err))
	}
	if result.CourierID != "" {
		fields = append(fields, logger.NewField("courier_id", result.CourierID))
	}
	r.log.Info("dispatch finished", fields...)

	return result
}
