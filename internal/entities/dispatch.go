package entities

import "time"

type AttemptOutcome string

const (
	AttemptPending  AttemptOutcome = "pending"
	AttemptAccepted AttemptOutcome = "accepted"
	AttemptRejected AttemptOutcome = "rejected"
	AttemptTimedOut AttemptOutcome = "timed_out"
)

func (o AttemptOutcome) String() string {
	return string(o)
}

type DispatchAttempt struct {
	CandidateID string
	OfferedAt   time.Time
	Outcome     AttemptOutcome
}

type DispatchState string

const (
	DispatchRunning   DispatchState = "running"
	DispatchSucceeded DispatchState = "succeeded"
	DispatchFailed    DispatchState = "failed"
	DispatchCancelled DispatchState = "cancelled"
)

func (s DispatchState) String() string {
	return string(s)
}

type DispatchResult struct {
	DispatchID string
	TaskID     string
	State      DispatchState

	// задача в принятом виде, только для DispatchSucceeded
	Task      *DeliveryTask
	CourierID string

	Err        error
	Attempts   []DispatchAttempt
	Rejections int

	StartedAt  time.Time
	FinishedAt time.Time
}
