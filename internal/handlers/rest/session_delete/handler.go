package session_delete

import (
	"errors"
	"net/http"

	"courier-dispatch/internal/service/session"
	"courier-dispatch/pkg/logger"

	"github.com/gorilla/mux"
)

type Handler struct {
	log     handlerLogger
	service Service
}

func New(log handlerLogger, service Service) *Handler {
	handlerLog := log.With(logger.NewField("handler", "session_delete"))

	return &Handler{
		log:     handlerLog,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	courierID := mux.Vars(r)["id"]

	err := h.service.GoOffline(r.Context(), courierID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidCourierID):
			w.WriteHeader(http.StatusBadRequest)
		case errors.Is(err, session.ErrSessionNotFound):
			w.WriteHeader(http.StatusNotFound)
		case errors.Is(err, session.ErrCourierBusy):
			w.WriteHeader(http.StatusConflict)
		default:
			h.log.With(
				logger.NewField("error", err),
				logger.NewField("courier_id", courierID),
			).Error("go offline")
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
