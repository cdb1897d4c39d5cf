package session_offer_post

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
	handlerLog := log.With(logger.NewField("handler", "session_offer_post"))

	return &Handler{
		log:     handlerLog,
		service: service,
	}
}

// ServeHTTP - ответ курьера на оффер. accept возвращает принятую задачу,
// reject - пустой ответ.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	courierID := mux.Vars(r)["id"]

	var body dto.OfferDecision
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch body.Decision {
	case dto.DecisionAccept:
		task, err := h.service.AcceptOffer(r.Context(), courierID, body.TaskID)
		if err != nil {
			h.writeError(w, err, courierID, body.TaskID)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err = json.NewEncoder(w).Encode(dto.FromTask(task))
		if err != nil {
			h.log.With(
				logger.NewField("error", err),
			).Error("encode JSON response")
		}
	case dto.DecisionReject:
		err := h.service.RejectOffer(r.Context(), courierID, body.TaskID)
		if err != nil {
			h.writeError(w, err, courierID, body.TaskID)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error, courierID, taskID string) {
	switch {
	case errors.Is(err, session.ErrInvalidCourierID),
		errors.Is(err, session.ErrInvalidTaskID):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, session.ErrSessionNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, session.ErrOfferExpired):
		w.WriteHeader(http.StatusGone)
	case errors.Is(err, session.ErrNoPendingOffer),
		errors.Is(err, session.ErrOfferMismatch),
		errors.Is(err, session.ErrVersionConflict):
		// оффер уже снят диспетчером или ушел другому
		w.WriteHeader(http.StatusConflict)
	default:
		h.log.With(
			logger.NewField("error", err),
			logger.NewField("courier_id", courierID),
			logger.NewField("task_id", taskID),
		).Error("answer offer")
		w.WriteHeader(http.StatusInternalServerError)
	}
}
