package session

import "time"

type SessionDB struct {
	CourierID      string
	Lat            float64
	Lng            float64
	Geohash        string
	Busy           bool
	AssignedTask   *TaskDB
	AssignedTaskID *string
	OfferDeadline  *time.Time
	Version        int64
	UpdatedAt      time.Time
}

// TaskDB хранится в jsonb колонке assigned_task.
type TaskDB struct {
	ID                   string          `json:"id"`
	Pickup               AddressDB       `json:"pickup"`
	DropOff              AddressDB       `json:"drop_off"`
	DistanceMeters       float64         `json:"distance_meters"`
	TravelTimeMs         int64           `json:"travel_time_ms"`
	Wage                 int64           `json:"wage"`
	RequesterID          string          `json:"requester_id"`
	RequesterKind        string          `json:"requester_kind"`
	CreatedAt            time.Time       `json:"created_at"`
	ConfirmationDeadline *time.Time      `json:"confirmation_deadline,omitempty"`
	StatusHistory        []StatusEntryDB `json:"status_history"`
}

type AddressDB struct {
	Line string  `json:"line"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type StatusEntryDB struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}
