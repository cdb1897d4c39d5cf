package session_finish_post

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
	handlerLog := log.With(logger.NewField("handler", "session_finish_post"))

	return &Handler{
		log:     handlerLog,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	courierID := mux.Vars(r)["id"]

	var body dto.FinishTask
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	err = h.service.FinishTask(r.Context(), courierID, body.TaskID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidCourierID),
			errors.Is(err, session.ErrInvalidTaskID):
			w.WriteHeader(http.StatusBadRequest)
		case errors.Is(err, session.ErrSessionNotFound):
			w.WriteHeader(http.StatusNotFound)
		case errors.Is(err, session.ErrNoActiveTask),
			errors.Is(err, session.ErrOfferMismatch),
			errors.Is(err, session.ErrVersionConflict):
			w.WriteHeader(http.StatusConflict)
		default:
			h.log.With(
				logger.NewField("error", err),
				logger.NewField("courier_id", courierID),
			).Error("finish task")
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
