package ping_get

import (
	"encoding/json"
	"net/http"

	"courier-dispatch/internal/handlers/rest/dto"
	"courier-dispatch/pkg/logger"
)

type Handler struct {
	log   handlerLogger
	stats Stats
}

func New(log handlerLogger, stats Stats) *Handler {
	handlerLog := log.With(logger.NewField("handler", "ping_get"))

	return &Handler{
		log:   handlerLog,
		stats: stats,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	message := "pong"
	running := h.stats.Running()
	res := dto.PingResponse{
		Message:           &message,
		RunningDispatches: &running,
	}

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(res)
	if err != nil {
		h.log.With(
			logger.NewField("error", err),
		).Error("encode JSON response")
	}
}
