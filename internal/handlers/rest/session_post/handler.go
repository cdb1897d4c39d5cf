package session_post

import (
	"encoding/json"
	"errors"
	"net/http"

	"courier-dispatch/internal/handlers/rest/dto"
	"courier-dispatch/internal/service/session"
	"courier-dispatch/pkg/logger"
)

type Handler struct {
	log     handlerLogger
	service Service
}

func New(log handlerLogger, service Service) *Handler {
	handlerLog := log.With(logger.NewField("handler", "session_post"))

	return &Handler{
		log:     handlerLog,
		service: service,
	}
}

// ServeHTTP - курьер выходит на линию. Повторный вызов (переподключение)
// обновляет координаты и не трогает активную задачу.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body dto.SessionCreate
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	courierSession, err := h.service.GoOnline(r.Context(), body.CourierID, body.Location.ToDomain())
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidCourierID),
			errors.Is(err, session.ErrInvalidLocation):
			w.WriteHeader(http.StatusBadRequest)
		case errors.Is(err, session.ErrVersionConflict):
			w.WriteHeader(http.StatusConflict)
		default:
			h.log.With(
				logger.NewField("error", err),
				logger.NewField("courier_id", body.CourierID),
			).Error("go online")
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	err = json.NewEncoder(w).Encode(dto.FromSession(courierSession))
	if err != nil {
		h.log.With(
			logger.NewField("error", err),
		).Error("encode JSON response")
	}
}
