package dispatch_delete

import (
	"errors"
	"net/http"

	"courier-dispatch/internal/service/dispatch"
	"courier-dispatch/pkg/logger"

	"github.com/gorilla/mux"
)

type Handler struct {
	log     handlerLogger
	service Service
}

func New(log handlerLogger, service Service) *Handler {
	handlerLog := log.With(logger.NewField("handler", "dispatch_delete"))

	return &Handler{
		log:     handlerLog,
		service: service,
	}
}

// ServeHTTP только запрашивает отмену: итог (в том числе принятый в последний момент оффер)
// нужно забрать через GET /dispatch/{id}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	err := h.service.Cancel(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrDispatchNotFound):
			w.WriteHeader(http.StatusNotFound)
		default:
			h.log.With(
				logger.NewField("error", err),
				logger.NewField("dispatch_id", id),
			).Error("cancel dispatch")
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
