package entities

import "time"

type CourierSession struct {
	CourierID string
	Location  GeoPoint
	Geohash   string
	Busy      bool

	AssignedTask *DeliveryTask
	// денормализованная копия AssignedTask.ID для запросов
	AssignedTaskID *string

	Version   int64
	UpdatedAt time.Time
}

// PendingOffer - задача назначена, но курьер ещё не подтвердил.
func (s *CourierSession) PendingOffer() bool {
	return s.AssignedTask != nil && s.AssignedTask.ConfirmationDeadline != nil
}

func (s *CourierSession) HoldsTask(taskID string) bool {
	return s.AssignedTask != nil && s.AssignedTask.ID == taskID
}

func (s *CourierSession) Clone() *CourierSession {
	if s == nil {
		return nil
	}
	c := *s
	c.AssignedTask = s.AssignedTask.Clone()
	if s.AssignedTaskID != nil {
		id := *s.AssignedTaskID
		c.AssignedTaskID = &id
	}
	return &c
}

// SessionModify - частичное обновление сессии, nil поля не трогаются.
// AssignedTask и ClearAssignedTask взаимоисключающие.
type SessionModify struct {
	Location          *GeoPoint
	Busy              *bool
	AssignedTask      *DeliveryTask
	ClearAssignedTask bool
}

// SessionChangeFunc получает актуальное состояние сессии после каждого изменения.
// session == nil и err == nil означает, что сессия удалена (курьер ушел офлайн).
type SessionChangeFunc func(session *CourierSession, err error)

type Subscription interface {
	Unsubscribe()
}
