package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courier-dispatch/internal/entities"
)

// Service - операции курьерского клиента над своей сессией.
// Все переходы оффера делаются условной записью по версии сессии,
// конфликт версии отдается наружу как ErrVersionConflict.
type Service struct {
	repository Repository
	events     EventRepository
	txManager  TxManager
	clock      Clock
}

func New(repository Repository, events EventRepository, txManager TxManager, clock Clock) *Service {
	return &Service{
		repository: repository,
		events:     events,
		txManager:  txManager,
		clock:      clock,
	}
}

func (s *Service) GetSession(ctx context.Context, courierID string) (*entities.CourierSession, error) {
	if !isValidID(courierID) {
		return nil, ErrInvalidCourierID
	}

	session, err := s.repository.Get(ctx, courierID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// GoOnline создает сессию, а если она уже есть (переподключение) - только обновляет координаты,
// чтобы не потерять активную задачу.
func (s *Service) GoOnline(ctx context.Context, courierID string, location entities.GeoPoint) (*entities.CourierSession, error) {
	if !isValidID(courierID) {
		return nil, ErrInvalidCourierID
	}
	if !isValidLocation(location) {
		return nil, ErrInvalidLocation
	}

	var session *entities.CourierSession
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		_, err := s.repository.Get(ctx, courierID)
		switch {
		case err == nil:
			err = s.repository.Set(ctx, courierID, entities.SessionModify{Location: &location}, true)
			if err != nil {
				return fmt.Errorf("update location: %w", err)
			}
		case errors.Is(err, ErrSessionNotFound):
			busy := false
			err = s.repository.Set(ctx, courierID, entities.SessionModify{
				Location:          &location,
				Busy:              &busy,
				ClearAssignedTask: true,
			}, false)
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}
		default:
			return fmt.Errorf("get session: %w", err)
		}

		session, err = s.repository.Get(ctx, courierID)
		if err != nil {
			return fmt.Errorf("read back session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) UpdateLocation(ctx context.Context, courierID string, location entities.GeoPoint) error {
	if !isValidID(courierID) {
		return ErrInvalidCourierID
	}
	if !isValidLocation(location) {
		return ErrInvalidLocation
	}

	err := s.repository.Set(ctx, courierID, entities.SessionModify{Location: &location}, true)
	if err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	return nil
}

// GoOffline удаляет сессию. Курьер с подтвержденной задачей уйти не может,
// а неподтвержденный оффер при удалении считается отклоненным.
func (s *Service) GoOffline(ctx context.Context, courierID string) error {
	if !isValidID(courierID) {
		return ErrInvalidCourierID
	}

	return s.txManager.Do(ctx, func(ctx context.Context) error {
		session, err := s.repository.Get(ctx, courierID)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		if session.Busy {
			return ErrCourierBusy
		}

		err = s.repository.Delete(ctx, courierID)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}

		if session.PendingOffer() {
			return s.appendEvent(ctx, session.AssignedTask.ID, courierID, entities.TaskRejected)
		}
		return nil
	})
}

// AcceptOffer подтверждает оффер: снимает дедлайн и ставит busy одной условной записью.
func (s *Service) AcceptOffer(ctx context.Context, courierID, taskID string) (*entities.DeliveryTask, error) {
	if !isValidID(courierID) {
		return nil, ErrInvalidCourierID
	}
	if !isValidID(taskID) {
		return nil, ErrInvalidTaskID
	}

	var accepted *entities.DeliveryTask
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		session, err := s.pendingOffer(ctx, courierID, taskID)
		if err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		if now.After(*session.AssignedTask.ConfirmationDeadline) {
			return ErrOfferExpired
		}

		task := session.AssignedTask.Clone()
		task.ConfirmationDeadline = nil
		task.AppendStatus(entities.TaskAccepted, now)

		busy := true
		err = s.repository.CompareAndSet(ctx, courierID, session.Version, entities.SessionModify{
			Busy:         &busy,
			AssignedTask: task,
		})
		if err != nil {
			return fmt.Errorf("accept offer: %w", err)
		}

		accepted = task
		return s.appendEvent(ctx, taskID, courierID, entities.TaskAccepted)
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

func (s *Service) RejectOffer(ctx context.Context, courierID, taskID string) error {
	if !isValidID(courierID) {
		return ErrInvalidCourierID
	}
	if !isValidID(taskID) {
		return ErrInvalidTaskID
	}

	return s.txManager.Do(ctx, func(ctx context.Context) error {
		session, err := s.pendingOffer(ctx, courierID, taskID)
		if err != nil {
			return err
		}

		err = s.repository.CompareAndSet(ctx, courierID, session.Version, entities.SessionModify{
			ClearAssignedTask: true,
		})
		if err != nil {
			return fmt.Errorf("reject offer: %w", err)
		}

		return s.appendEvent(ctx, taskID, courierID, entities.TaskRejected)
	})
}

// FinishTask завершает подтвержденную задачу и возвращает курьера в пул.
func (s *Service) FinishTask(ctx context.Context, courierID, taskID string) error {
	if !isValidID(courierID) {
		return ErrInvalidCourierID
	}
	if !isValidID(taskID) {
		return ErrInvalidTaskID
	}

	return s.txManager.Do(ctx, func(ctx context.Context) error {
		session, err := s.repository.Get(ctx, courierID)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		if !session.Busy || session.AssignedTask == nil {
			return ErrNoActiveTask
		}
		if session.AssignedTask.ID != taskID {
			return ErrOfferMismatch
		}

		free := false
		err = s.repository.CompareAndSet(ctx, courierID, session.Version, entities.SessionModify{
			Busy:              &free,
			ClearAssignedTask: true,
		})
		if err != nil {
			return fmt.Errorf("finish task: %w", err)
		}

		return s.appendEvent(ctx, taskID, courierID, entities.TaskDelivered)
	})
}

// ReconcileExpiredOffers снимает офферы, которые никто не отслеживает:
// дедлайн прошел больше чем grace назад, а курьер так и не ответил.
func (s *Service) ReconcileExpiredOffers(ctx context.Context, grace time.Duration) (int64, error) {
	before := s.clock.Now().UTC().Add(-grace)

	sessions, err := s.repository.ListExpiredOffers(ctx, before)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, fmt.Errorf("reconcile timed out: %w", err)
		}
		return 0, fmt.Errorf("list expired offers: %w", err)
	}

	var cleared int64
	for i := range sessions {
		session := sessions[i]
		if !session.PendingOffer() {
			continue
		}

		err := s.txManager.Do(ctx, func(ctx context.Context) error {
			err := s.repository.CompareAndSet(ctx, session.CourierID, session.Version, entities.SessionModify{
				ClearAssignedTask: true,
			})
			if err != nil {
				return err
			}
			return s.appendEvent(ctx, session.AssignedTask.ID, session.CourierID, entities.TaskTimedOut)
		})
		switch {
		case err == nil:
			cleared++
		case errors.Is(err, ErrVersionConflict), errors.Is(err, ErrSessionNotFound):
			// сессию успели поменять - значит оффер кто-то обработал
		default:
			return cleared, fmt.Errorf("clear expired offer %s: %w", session.CourierID, err)
		}
	}

	return cleared, nil
}

func (s *Service) pendingOffer(ctx context.Context, courierID, taskID string) (*entities.CourierSession, error) {
	session, err := s.repository.Get(ctx, courierID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !session.PendingOffer() {
		return nil, ErrNoPendingOffer
	}
	if session.AssignedTask.ID != taskID {
		return nil, ErrOfferMismatch
	}
	return session, nil
}

func (s *Service) appendEvent(ctx context.Context, taskID, courierID string, status entities.TaskStatusType) error {
	err := s.events.AppendTaskEvent(ctx, entities.TaskEvent{
		TaskID:    taskID,
		CourierID: courierID,
		Status:    status,
		CreatedAt: s.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("append task event: %w", err)
	}
	return nil
}
