package entities

import "time"

type TaskStatusType string

const (
	TaskCreated   TaskStatusType = "created"
	TaskOffered   TaskStatusType = "offered"
	TaskAccepted  TaskStatusType = "accepted"
	TaskRejected  TaskStatusType = "rejected"
	TaskTimedOut  TaskStatusType = "timed_out"
	TaskDelivered TaskStatusType = "delivered"
)

func (s TaskStatusType) String() string {
	return string(s)
}

type RequesterKind string

const (
	RequesterCheckout RequesterKind = "checkout"
	RequesterDonation RequesterKind = "donation"
)

func (k RequesterKind) String() string {
	return string(k)
}

type TaskStatusEntry struct {
	Status TaskStatusType
	At     time.Time
}

type DeliveryTask struct {
	ID             string
	Pickup         Address
	DropOff        Address
	DistanceMeters float64
	TravelTime     time.Duration
	// в минимальных единицах валюты
	Wage          int64
	RequesterID   string
	RequesterKind RequesterKind
	CreatedAt     time.Time

	// не nil только пока оффер ждет ответа курьера
	ConfirmationDeadline *time.Time
	StatusHistory        []TaskStatusEntry
}

// Clone возвращает глубокую копию, задача уходит в хранилище и не должна шариться между офферами.
func (t *DeliveryTask) Clone() *DeliveryTask {
	if t == nil {
		return nil
	}
	c := *t
	if t.ConfirmationDeadline != nil {
		deadline := *t.ConfirmationDeadline
		c.ConfirmationDeadline = &deadline
	}
	if t.StatusHistory != nil {
		c.StatusHistory = make([]TaskStatusEntry, len(t.StatusHistory))
		copy(c.StatusHistory, t.StatusHistory)
	}
	return &c
}

func (t *DeliveryTask) AppendStatus(status TaskStatusType, at time.Time) {
	t.StatusHistory = append(t.StatusHistory, TaskStatusEntry{Status: status, At: at})
}

// TaskEvent - запись в журнале переходов задачи.
type TaskEvent struct {
	TaskID    string
	CourierID string
	Status    TaskStatusType
	CreatedAt time.Time
}
