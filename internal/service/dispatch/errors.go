package dispatch

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid dispatch request")
	ErrInvalidTask    = errors.New("invalid delivery task")
	ErrInvalidOrigin  = errors.New("invalid origin")
	ErrInvalidRadius  = errors.New("invalid radius")
	// ErrInvalidOfferWindow - окно оффера отрицательное или больше MaxOfferWindow.
	ErrInvalidOfferWindow = errors.New("invalid offer window")

	// ErrNotAvailable - пул кандидатов исчерпан или достигнут лимит отказов. Повторяемая ошибка.
	ErrNotAvailable = errors.New("no courier available")
	// ErrQueryFailed - поиск кандидатов по радиусу упал, диспетчеризация прервана сразу.
	ErrQueryFailed = errors.New("candidate query failed")
	ErrCancelled   = errors.New("dispatch cancelled")

	ErrDispatchNotFound = errors.New("dispatch not found")
	ErrShuttingDown     = errors.New("dispatcher is shutting down")
	// ErrAlreadyDispatching - по этой задаче уже идет диспетчеризация.
	ErrAlreadyDispatching = errors.New("task is already being dispatched")
)
