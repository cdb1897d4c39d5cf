package session

import (
	"time"

	"courier-dispatch/internal/entities"
)

func ToDomain(s *SessionDB) *entities.CourierSession {
	if s == nil {
		return nil
	}

	return &entities.CourierSession{
		CourierID:      s.CourierID,
		Location:       entities.GeoPoint{Lat: s.Lat, Lng: s.Lng},
		Geohash:        s.Geohash,
		Busy:           s.Busy,
		AssignedTask:   ToDomainTask(s.AssignedTask),
		AssignedTaskID: s.AssignedTaskID,
		Version:        s.Version,
		UpdatedAt:      s.UpdatedAt.UTC(),
	}
}

func ToDomainList(sessionsDB []SessionDB) []entities.CourierSession {
	result := make([]entities.CourierSession, len(sessionsDB))
	for i := range sessionsDB {
		result[i] = *ToDomain(&sessionsDB[i])
	}
	return result
}

func ToDomainTask(t *TaskDB) *entities.DeliveryTask {
	if t == nil {
		return nil
	}

	task := &entities.DeliveryTask{
		ID:             t.ID,
		Pickup:         toDomainAddress(t.Pickup),
		DropOff:        toDomainAddress(t.DropOff),
		DistanceMeters: t.DistanceMeters,
		TravelTime:     time.Duration(t.TravelTimeMs) * time.Millisecond,
		Wage:           t.Wage,
		RequesterID:    t.RequesterID,
		RequesterKind:  entities.RequesterKind(t.RequesterKind),
		CreatedAt:      t.CreatedAt.UTC(),
	}
	if t.ConfirmationDeadline != nil {
		deadline := t.ConfirmationDeadline.UTC()
		task.ConfirmationDeadline = &deadline
	}
	if len(t.StatusHistory) > 0 {
		task.StatusHistory = make([]entities.TaskStatusEntry, len(t.StatusHistory))
		for i, entry := range t.StatusHistory {
			task.StatusHistory[i] = entities.TaskStatusEntry{
				Status: entities.TaskStatusType(entry.Status),
				At:     entry.At.UTC(),
			}
		}
	}
	return task
}

func FromDomainTask(t *entities.DeliveryTask) *TaskDB {
	if t == nil {
		return nil
	}

	task := &TaskDB{
		ID:                   t.ID,
		Pickup:               fromDomainAddress(t.Pickup),
		DropOff:              fromDomainAddress(t.DropOff),
		DistanceMeters:       t.DistanceMeters,
		TravelTimeMs:         t.TravelTime.Milliseconds(),
		Wage:                 t.Wage,
		RequesterID:          t.RequesterID,
		RequesterKind:        t.RequesterKind.String(),
		CreatedAt:            t.CreatedAt,
		ConfirmationDeadline: t.ConfirmationDeadline,
		StatusHistory:        make([]StatusEntryDB, len(t.StatusHistory)),
	}
	for i, entry := range t.StatusHistory {
		task.StatusHistory[i] = StatusEntryDB{Status: entry.Status.String(), At: entry.At}
	}
	return task
}

func toDomainAddress(a AddressDB) entities.Address {
	return entities.Address{
		Line:  a.Line,
		Point: entities.GeoPoint{Lat: a.Lat, Lng: a.Lng},
	}
}

func fromDomainAddress(a entities.Address) AddressDB {
	return AddressDB{
		Line: a.Line,
		Lat:  a.Point.Lat,
		Lng:  a.Point.Lng,
	}
}
