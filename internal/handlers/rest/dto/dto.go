// Package dto - JSON модели REST API и kafka сообщений.
package dto

import "time"

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Address struct {
	Line  string   `json:"line"`
	Point GeoPoint `json:"point"`
}

type TaskStatusEntry struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

type DeliveryTask struct {
	ID                   string            `json:"id"`
	Pickup               Address           `json:"pickup"`
	DropOff              Address           `json:"drop_off"`
	DistanceMeters       float64           `json:"distance_meters"`
	TravelTimeMs         int64             `json:"travel_time_ms"`
	Wage                 int64             `json:"wage"`
	RequesterID          string            `json:"requester_id"`
	RequesterKind        string            `json:"requester_kind"`
	CreatedAt            *time.Time        `json:"created_at,omitempty"`
	ConfirmationDeadline *time.Time        `json:"confirmation_deadline,omitempty"`
	StatusHistory        []TaskStatusEntry `json:"status_history,omitempty"`
}

// DispatchCreate - тело POST /dispatch и сообщение топика task created.
type DispatchCreate struct {
	Task               DeliveryTask `json:"task"`
	Origin             *GeoPoint    `json:"origin,omitempty"`
	RadiusMeters       *float64     `json:"radius_meters,omitempty"`
	OfferWindowSeconds *int64       `json:"offer_window_seconds,omitempty"`
	MaxRejections      *int         `json:"max_rejections,omitempty"`
}

type DispatchCreateResponse struct {
	ID     string `json:"id"`
	TaskID string `json:"task_id"`
	State  string `json:"state"`
}

type DispatchAttempt struct {
	CourierID string    `json:"courier_id"`
	OfferedAt time.Time `json:"offered_at"`
	Outcome   string    `json:"outcome"`
}

// Dispatch - состояние диспетчеризации, оно же сообщение топика dispatch result.
type Dispatch struct {
	ID         string            `json:"id"`
	TaskID     string            `json:"task_id"`
	State      string            `json:"state"`
	CourierID  string            `json:"courier_id,omitempty"`
	Task       *DeliveryTask     `json:"task,omitempty"`
	Error      string            `json:"error,omitempty"`
	Rejections int               `json:"rejections"`
	Attempts   []DispatchAttempt `json:"attempts"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

type SessionCreate struct {
	CourierID string   `json:"courier_id"`
	Location  GeoPoint `json:"location"`
}

type Session struct {
	CourierID    string        `json:"courier_id"`
	Location     GeoPoint      `json:"location"`
	Geohash      string        `json:"geohash"`
	Busy         bool          `json:"busy"`
	AssignedTask *DeliveryTask `json:"assigned_task,omitempty"`
	Version      int64         `json:"version"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

type OfferDecision struct {
	TaskID   string `json:"task_id"`
	Decision string `json:"decision"`
}

type FinishTask struct {
	TaskID string `json:"task_id"`
}

type PingResponse struct {
	Message           *string `json:"message,omitempty"`
	RunningDispatches *int    `json:"running_dispatches,omitempty"`
}
