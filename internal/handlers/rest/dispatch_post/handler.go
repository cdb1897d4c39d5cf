package dispatch_post

import (
	"encoding/json"
	"errors"
	"net/http"

	"courier-dispatch/internal/handlers/rest/dto"
	"courier-dispatch/internal/pkg/middlewares/timeout"
	"courier-dispatch/internal/service/dispatch"
	"courier-dispatch/pkg/logger"

	"github.com/google/uuid"
)

type Handler struct {
	log                 handlerLogger
	service             Service
	defaultRadiusMeters float64
}

func New(log handlerLogger, service Service, defaultRadiusMeters float64) *Handler {
	handlerLog := log.With(logger.NewField("handler", "dispatch_post"))

	return &Handler{
		log:                 handlerLog,
		service:             service,
		defaultRadiusMeters: defaultRadiusMeters,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body dto.DispatchCreate
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if body.Task.ID == "" {
		body.Task.ID = uuid.NewString()
	}

	req, err := body.ToRequest(h.defaultRadiusMeters)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// диспетчеризация переживает запрос, ответ сразу 202
	result, err := h.service.Submit(r.Context(), req, nil)
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrInvalidRequest):
			w.WriteHeader(http.StatusBadRequest)
		case errors.Is(err, dispatch.ErrAlreadyDispatching):
			w.WriteHeader(http.StatusConflict)
		case errors.Is(err, dispatch.ErrShuttingDown):
			w.WriteHeader(http.StatusServiceUnavailable)
		case timeout.Exceeded(r.Context()):
			w.WriteHeader(http.StatusGatewayTimeout)
		default:
			h.log.With(
				logger.NewField("error", err),
				logger.NewField("task_id", body.Task.ID),
			).Error("submit dispatch")
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	response := dto.DispatchCreateResponse{
		ID:     result.DispatchID,
		TaskID: result.TaskID,
		State:  result.State.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/dispatch/"+result.DispatchID)
	w.WriteHeader(http.StatusAccepted)
	err = json.NewEncoder(w).Encode(response)
	if err != nil {
		h.log.With(
			logger.NewField("error", err),
		).Error("encode JSON response")
	}
}
