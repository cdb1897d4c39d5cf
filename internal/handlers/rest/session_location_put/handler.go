package session_location_put

import (
	"encoding/json"
	"errors"
	"net/http"

	"courier-dispatch/internal/handlers/rest/dto"
	"courier-dispatch/internal/service/session"
	"courier-dispatch/pkg/logger"

	"github.com/gorilla/mux"
)

type Handler struct {
	log     handlerLogger
	service Service
}

func New(log handlerLogger, service Service) *Handler {
	handlerLog := log.With(logger.NewField("handler", "session_location_put"))

	return &Handler{
		log:     handlerLog,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	courierID := mux.Vars(r)["id"]

	var location dto.GeoPoint
	err := json.NewDecoder(r.Body).Decode(&location)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	err = h.service.UpdateLocation(r.Context(), courierID, location.ToDomain())
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidCourierID),
			errors.Is(err, session.ErrInvalidLocation):
			w.WriteHeader(http.StatusBadRequest)
		case errors.Is(err, session.ErrSessionNotFound):
			w.WriteHeader(http.StatusNotFound)
		default:
			h.log.With(
				logger.NewField("error", err),
				logger.NewField("courier_id", courierID),
			).Error("update location")
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
