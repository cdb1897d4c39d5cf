package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courier-dispatch/internal/entities"
	"courier-dispatch/internal/service/session"
	"courier-dispatch/pkg/logger"
)

const (
	eventsBuffer = 32
	// сколько раз перечитываем сессию, если снятие оффера упирается в конфликт версии
	clearAttempts = 3
)

type eventKind int

const (
	eventSessionChanged eventKind = iota
	eventDeadline
)

type event struct {
	kind eventKind

	// номер оффера, к которому относится уведомление подписки
	seq     uint64
	session *entities.CourierSession
	err     error

	// поколение таймера для eventDeadline
	generation uint64
}

type step int

const (
	stepSkipped step = iota
	stepAccepted
	stepRejected
	stepTimedOut
	stepFailed
	stepCancelled
)

// offerRun - состояние одной диспетчеризации. Все поля меняет только горутина run,
// подписка и таймер общаются с ней через events.
type offerRun struct {
	d   *Dispatcher
	log logger.Logger

	task          *entities.DeliveryTask
	origin        entities.GeoPoint
	radius        float64
	window        time.Duration
	maxRejections int

	events    chan event
	done      chan struct{}
	scheduler *DeadlineScheduler
	seq       uint64

	result entities.DispatchResult
}

func newOfferRun(d *Dispatcher, id string, req Request) *offerRun {
	task := req.Task.Clone()
	task.ConfirmationDeadline = nil

	r := &offerRun{
		d: d,
		log: d.log.With(
			logger.NewField("dispatch_id", id),
			logger.NewField("task_id", task.ID),
		),
		task:          task,
		origin:        req.Origin,
		radius:        req.RadiusMeters,
		window:        d.config.OfferWindow,
		maxRejections: d.config.MaxRejections,
		events:        make(chan event, eventsBuffer),
		done:          make(chan struct{}),
		result: entities.DispatchResult{
			DispatchID: id,
			TaskID:     task.ID,
			State:      entities.DispatchRunning,
			StartedAt:  d.clock.Now().UTC(),
		},
	}
	if req.OfferWindow > 0 {
		r.window = req.OfferWindow
	}
	if req.MaxRejections > 0 {
		r.maxRejections = req.MaxRejections
	}

	r.scheduler = NewDeadlineScheduler(d.clock, func(generation uint64) {
		r.post(event{kind: eventDeadline, generation: generation})
	})
	return r
}

// post не блокируется навсегда: после завершения run события просто выбрасываются.
func (r *offerRun) post(ev event) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

func (r *offerRun) close() {
	r.scheduler.Cancel()
	close(r.done)
}

func (r *offerRun) execute(ctx context.Context) entities.DispatchResult {
	sessions, err := r.d.index.QueryWithinRadius(ctx, r.origin, r.radius)
	if err != nil {
		if ctx.Err() != nil {
			return r.cancelled(ctx)
		}
		r.log.Error("query candidates failed", logger.NewField("error", err))
		return r.fail(fmt.Errorf("%w: %w", ErrQueryFailed, err))
	}

	candidates := r.d.selector.Order(sessions)
	r.log.Info("candidates selected", logger.NewField("count", len(candidates)))

	for _, candidateID := range candidates {
		if r.result.Rejections >= r.maxRejections {
			break
		}
		if ctx.Err() != nil {
			return r.cancelled(ctx)
		}

		accepted, outcome := r.tryCandidate(ctx, candidateID)
		switch outcome {
		case stepAccepted:
			return r.succeed(candidateID, accepted)
		case stepCancelled:
			return r.cancelled(ctx)
		case stepRejected, stepTimedOut, stepFailed:
			r.result.Rejections++
		case stepSkipped:
		}
	}

	return r.fail(ErrNotAvailable)
}

// tryCandidate делает оффер одному кандидату и ждет решения.
func (r *offerRun) tryCandidate(ctx context.Context, candidateID string) (*entities.DeliveryTask, step) {
	log := r.log.With(logger.NewField("courier_id", candidateID))

	current, err := r.d.store.Get(ctx, candidateID)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		log.Debug("candidate went offline, skipping")
		OfferOutcomesTotal.WithLabelValues(outcomeSkipped).Inc()
		return nil, stepSkipped
	case err != nil:
		if ctx.Err() != nil {
			return nil, stepCancelled
		}
		log.Warn("read candidate session failed", logger.NewField("error", err))
		OfferOutcomesTotal.WithLabelValues(outcomeError).Inc()
		return nil, stepFailed
	}

	// задача уже подтверждена этим курьером, например при повторной доставке после падения
	if current.HoldsTask(r.task.ID) && !current.PendingOffer() {
		log.Info("candidate already accepted this task")
		r.recordAttempt(candidateID, r.d.clock.Now().UTC(), entities.AttemptAccepted)
		OfferOutcomesTotal.WithLabelValues(entities.AttemptAccepted.String()).Inc()
		return current.AssignedTask.Clone(), stepAccepted
	}
	if current.Busy || (current.AssignedTask != nil && current.AssignedTask.ID != r.task.ID) {
		log.Debug("candidate is occupied, skipping")
		OfferOutcomesTotal.WithLabelValues(outcomeSkipped).Inc()
		return nil, stepSkipped
	}

	now := r.d.clock.Now().UTC()
	deadline := now.Add(r.window)
	offered := r.task.Clone()
	offered.ConfirmationDeadline = &deadline
	offered.AppendStatus(entities.TaskOffered, now)

	err = r.d.store.CompareAndSet(ctx, candidateID, current.Version, entities.SessionModify{
		AssignedTask: offered,
	})
	switch {
	case err == nil:
	case errors.Is(err, session.ErrVersionConflict):
		log.Info("candidate session changed before offer, counting as rejection")
		OfferOutcomesTotal.WithLabelValues(outcomeConflict).Inc()
		return nil, stepFailed
	case errors.Is(err, session.ErrSessionNotFound):
		log.Debug("candidate went offline, skipping")
		OfferOutcomesTotal.WithLabelValues(outcomeSkipped).Inc()
		return nil, stepSkipped
	default:
		// запись могла дойти до хранилища, поэтому проверяем и снимаем оффер
		log.Error("write offer failed", logger.NewField("error", err))
		OfferOutcomesTotal.WithLabelValues(outcomeError).Inc()
		accepted, landed := r.verifyFailedOffer(ctx, candidateID, log)
		switch {
		case accepted != nil:
			r.recordAttempt(candidateID, now, entities.AttemptAccepted)
			return accepted, stepAccepted
		case landed:
			// курьер успел увидеть оффер, попытка попадает в результат
			r.recordAttempt(candidateID, now, entities.AttemptRejected)
		}
		if ctx.Err() != nil {
			return nil, stepCancelled
		}
		return nil, stepFailed
	}

	log.Info("offer sent", logger.NewField("deadline", deadline))
	idx := r.recordAttempt(candidateID, now, entities.AttemptPending)

	accepted, outcome := r.awaitDecision(ctx, candidateID, deadline, log)
	switch outcome {
	case stepAccepted:
		r.result.Attempts[idx].Outcome = entities.AttemptAccepted
	case stepTimedOut:
		r.result.Attempts[idx].Outcome = entities.AttemptTimedOut
	case stepRejected, stepFailed:
		r.result.Attempts[idx].Outcome = entities.AttemptRejected
	case stepCancelled:
		// оффер снят при отмене, попытка остается pending
		return nil, stepCancelled
	}
	OfferOutcomesTotal.WithLabelValues(r.result.Attempts[idx].Outcome.String()).Inc()
	return accepted, outcome
}

// awaitDecision ждет одно из: подтверждение, отказ, дедлайн или отмену.
// Побеждает то, что первым дошло до цикла.
func (r *offerRun) awaitDecision(ctx context.Context, candidateID string, deadline time.Time, log logger.Logger) (*entities.DeliveryTask, step) {
	r.seq++
	seq := r.seq

	sub, err := r.d.store.Subscribe(ctx, candidateID, func(s *entities.CourierSession, err error) {
		r.post(event{kind: eventSessionChanged, seq: seq, session: s, err: err})
	})
	if err != nil {
		log.Error("subscribe to candidate session failed", logger.NewField("error", err))
		if accepted := r.withdrawDetached(ctx, candidateID, log); accepted != nil {
			return accepted, stepAccepted
		}
		if ctx.Err() != nil {
			return nil, stepCancelled
		}
		return nil, stepFailed
	}
	defer sub.Unsubscribe()

	r.scheduler.Arm(deadline.Sub(r.d.clock.Now()))
	defer r.scheduler.Cancel()

	for {
		select {
		case <-ctx.Done():
			log.Info("dispatch cancelled while offer is pending")
			if accepted := r.withdrawDetached(ctx, candidateID, log); accepted != nil {
				return accepted, stepAccepted
			}
			return nil, stepCancelled

		case ev := <-r.events:
			switch ev.kind {
			case eventDeadline:
				if !r.scheduler.IsCurrent(ev.generation) {
					continue
				}
				now := r.d.clock.Now()
				if now.Before(deadline) {
					r.scheduler.Arm(deadline.Sub(now))
					continue
				}

				accepted, err := r.withdraw(ctx, candidateID)
				if accepted != nil {
					log.Info("offer accepted at deadline")
					return accepted, stepAccepted
				}
				if err != nil {
					log.Error("clear timed out offer failed", logger.NewField("error", err))
				}
				log.Info("offer timed out")
				return nil, stepTimedOut

			case eventSessionChanged:
				if ev.seq != seq {
					continue
				}
				if ev.err != nil {
					log.Warn("session subscription error", logger.NewField("error", ev.err))
					continue
				}

				current := ev.session
				switch {
				case current == nil:
					log.Info("candidate went offline with pending offer")
					return nil, stepRejected
				case current.AssignedTask == nil:
					log.Info("offer rejected")
					return nil, stepRejected
				case current.AssignedTask.ID != r.task.ID:
					// оффер перезаписан чужой диспетчеризацией, ждем дедлайн
					continue
				case current.AssignedTask.ConfirmationDeadline == nil:
					log.Info("offer accepted")
					return current.AssignedTask.Clone(), stepAccepted
				case !current.AssignedTask.ConfirmationDeadline.Equal(deadline):
					deadline = *current.AssignedTask.ConfirmationDeadline
					r.scheduler.Arm(deadline.Sub(r.d.clock.Now()))
				}
			}
		}
	}
}

// withdraw снимает наш неподтвержденный оффер с курьера. Если оказалось, что курьер
// уже подтвердил задачу, возвращает ее: подтверждение важнее таймаута и отмены.
func (r *offerRun) withdraw(ctx context.Context, candidateID string) (*entities.DeliveryTask, error) {
	var accepted *entities.DeliveryTask

	err := r.d.retrier.ExecuteWithContext(ctx, func(ctx context.Context) error {
		for range clearAttempts {
			current, err := r.d.store.Get(ctx, candidateID)
			if errors.Is(err, session.ErrSessionNotFound) {
				return nil
			}
			if err != nil {
				return err
			}

			switch {
			case !current.HoldsTask(r.task.ID):
				return nil
			case !current.PendingOffer():
				accepted = current.AssignedTask.Clone()
				return nil
			}

			err = r.d.store.CompareAndSet(ctx, candidateID, current.Version, entities.SessionModify{
				ClearAssignedTask: true,
			})
			switch {
			case err == nil, errors.Is(err, session.ErrSessionNotFound):
				return nil
			case errors.Is(err, session.ErrVersionConflict):
				continue
			default:
				return err
			}
		}
		return session.ErrVersionConflict
	})

	return accepted, err
}

// verifyFailedOffer перечитывает сессию после ошибки записи оффера.
// landed - запись все-таки дошла и наш оффер был у курьера.
func (r *offerRun) verifyFailedOffer(ctx context.Context, candidateID string, log logger.Logger) (*entities.DeliveryTask, bool) {
	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.d.config.ClearTimeout)
	defer cancel()

	var landed bool
	current, err := r.d.store.Get(readCtx, candidateID)
	switch {
	case err == nil:
		landed = current.HoldsTask(r.task.ID)
	case errors.Is(err, session.ErrSessionNotFound):
		return nil, false
	default:
		// исход записи неизвестен, снимаем оффер, если он есть
		log.Warn("read back after failed offer write failed", logger.NewField("error", err))
	}

	if !landed && err == nil {
		return nil, false
	}
	return r.withdrawDetached(ctx, candidateID, log), landed
}

// withdrawDetached - withdraw, который переживает отмену ctx.
func (r *offerRun) withdrawDetached(ctx context.Context, candidateID string, log logger.Logger) *entities.DeliveryTask {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.d.config.ClearTimeout)
	defer cancel()

	accepted, err := r.withdraw(ctx, candidateID)
	if err != nil {
		log.Error("clear offer failed", logger.NewField("error", err))
	}
	return accepted
}

func (r *offerRun) recordAttempt(candidateID string, offeredAt time.Time, outcome entities.AttemptOutcome) int {
	r.result.Attempts = append(r.result.Attempts, entities.DispatchAttempt{
		CandidateID: candidateID,
		OfferedAt:   offeredAt,
		Outcome:     outcome,
	})
	return len(r.result.Attempts) - 1
}

func (r *offerRun) succeed(courierID string, task *entities.DeliveryTask) entities.DispatchResult {
	r.result.State = entities.DispatchSucceeded
	r.result.CourierID = courierID
	r.result.Task = task
	return r.result
}

func (r *offerRun) fail(err error) entities.DispatchResult {
	r.result.State = entities.DispatchFailed
	r.result.Err = err
	return r.result
}

func (r *offerRun) cancelled(ctx context.Context) entities.DispatchResult {
	r.result.State = entities.DispatchCancelled
	r.result.Err = fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
	return r.result
}
