package session

import "errors"

var (
	ErrInvalidCourierID = errors.New("invalid courier id")
	ErrInvalidTaskID    = errors.New("invalid task id")
	ErrInvalidLocation  = errors.New("invalid location")

	ErrSessionNotFound = errors.New("courier session not found")
	ErrVersionConflict = errors.New("courier session version conflict")

	ErrNoPendingOffer = errors.New("no pending offer")
	ErrOfferMismatch  = errors.New("offer belongs to another task")
	ErrOfferExpired   = errors.New("offer expired")
	ErrNoActiveTask   = errors.New("no active task")
	ErrCourierBusy    = errors.New("courier has active task")
)
