package dto

import (
	"fmt"
	"math"
	"time"

	"courier-dispatch/internal/entities"
	"courier-dispatch/internal/service/dispatch"
)

const (
	maxOfferWindowSeconds = int64(dispatch.MaxOfferWindow / time.Second)
	maxTravelTimeMs       = int64(math.MaxInt64 / int64(time.Millisecond))
)

func FromGeoPoint(p entities.GeoPoint) GeoPoint {
	return GeoPoint{Lat: p.Lat, Lng: p.Lng}
}

func (p GeoPoint) ToDomain() entities.GeoPoint {
	return entities.GeoPoint{Lat: p.Lat, Lng: p.Lng}
}

func FromTask(t *entities.DeliveryTask) *DeliveryTask {
	if t == nil {
		return nil
	}

	task := &DeliveryTask{
		ID:                   t.ID,
		Pickup:               Address{Line: t.Pickup.Line, Point: FromGeoPoint(t.Pickup.Point)},
		DropOff:              Address{Line: t.DropOff.Line, Point: FromGeoPoint(t.DropOff.Point)},
		DistanceMeters:       t.DistanceMeters,
		TravelTimeMs:         t.TravelTime.Milliseconds(),
		Wage:                 t.Wage,
		RequesterID:          t.RequesterID,
		RequesterKind:        t.RequesterKind.String(),
		ConfirmationDeadline: t.ConfirmationDeadline,
	}
	if !t.CreatedAt.IsZero() {
		createdAt := t.CreatedAt
		task.CreatedAt = &createdAt
	}
	for _, entry := range t.StatusHistory {
		task.StatusHistory = append(task.StatusHistory, TaskStatusEntry{
			Status: entry.Status.String(),
			At:     entry.At,
		})
	}
	return task
}

// ToDomain переводит задачу из запроса. Дедлайн и история статусов из запроса
// игнорируются: их ведет только диспетчер.
func (t DeliveryTask) ToDomain() *entities.DeliveryTask {
	task := &entities.DeliveryTask{
		ID:             t.ID,
		Pickup:         entities.Address{Line: t.Pickup.Line, Point: t.Pickup.Point.ToDomain()},
		DropOff:        entities.Address{Line: t.DropOff.Line, Point: t.DropOff.Point.ToDomain()},
		DistanceMeters: t.DistanceMeters,
		TravelTime:     time.Duration(t.TravelTimeMs) * time.Millisecond,
		Wage:           t.Wage,
		RequesterID:    t.RequesterID,
		RequesterKind:  entities.RequesterKind(t.RequesterKind),
	}
	if t.CreatedAt != nil {
		task.CreatedAt = t.CreatedAt.UTC()
	}
	return task
}

func FromSession(s *entities.CourierSession) Session {
	return Session{
		CourierID:    s.CourierID,
		Location:     FromGeoPoint(s.Location),
		Geohash:      s.Geohash,
		Busy:         s.Busy,
		AssignedTask: FromTask(s.AssignedTask),
		Version:      s.Version,
		UpdatedAt:    s.UpdatedAt,
	}
}

func FromDispatchResult(r entities.DispatchResult) Dispatch {
	d := Dispatch{
		ID:         r.DispatchID,
		TaskID:     r.TaskID,
		State:      r.State.String(),
		CourierID:  r.CourierID,
		Task:       FromTask(r.Task),
		Rejections: r.Rejections,
		Attempts:   make([]DispatchAttempt, 0, len(r.Attempts)),
		StartedAt:  r.StartedAt,
	}
	if r.Err != nil {
		d.Error = r.Err.Error()
	}
	if !r.FinishedAt.IsZero() {
		finishedAt := r.FinishedAt
		d.FinishedAt = &finishedAt
	}
	for _, attempt := range r.Attempts {
		d.Attempts = append(d.Attempts, DispatchAttempt{
			CourierID: attempt.CandidateID,
			OfferedAt: attempt.OfferedAt,
			Outcome:   attempt.Outcome.String(),
		})
	}
	return d
}

// ToRequest собирает запрос диспетчеру. Без origin поиск идет от точки забора,
// без радиуса - в радиусе по умолчанию; окно и лимит отказов без значения берутся из конфига диспетчера.
func (d DispatchCreate) ToRequest(defaultRadiusMeters float64) (dispatch.Request, error) {
	if d.Task.TravelTimeMs < 0 || d.Task.TravelTimeMs > maxTravelTimeMs {
		return dispatch.Request{}, fmt.Errorf("%w: %w", dispatch.ErrInvalidRequest, dispatch.ErrInvalidTask)
	}

	req := dispatch.Request{
		Task:         d.Task.ToDomain(),
		RadiusMeters: defaultRadiusMeters,
	}
	req.Origin = req.Task.Pickup.Point
	if d.Origin != nil {
		req.Origin = d.Origin.ToDomain()
	}
	if d.RadiusMeters != nil {
		req.RadiusMeters = *d.RadiusMeters
	}
	if d.OfferWindowSeconds != nil {
		// проверяем до умножения, иначе большое значение переполнит Duration
		seconds := *d.OfferWindowSeconds
		if seconds < 0 || seconds > maxOfferWindowSeconds {
			return dispatch.Request{}, fmt.Errorf("%w: %w", dispatch.ErrInvalidRequest, dispatch.ErrInvalidOfferWindow)
		}
		req.OfferWindow = time.Duration(seconds) * time.Second
	}
	if d.MaxRejections != nil {
		req.MaxRejections = *d.MaxRejections
	}
	return req, nil
}
