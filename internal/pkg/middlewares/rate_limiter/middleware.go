package rate_limiter

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"courier-dispatch/internal/pkg/middlewares/route"
	"courier-dispatch/pkg/logger"

	"github.com/gorilla/mux"
)

const (
	keyKindCourier = "courier"
	keyKindClient  = "client"
)

// Middleware ограничивает частоту запросов отдельно на каждого клиента.
// Запросы к сессии считаются по курьеру из пути (пинги координат идут часто и не должны
// съедать лимит соседей), остальные - по адресу клиента.
func Middleware(log handlerLogger, limit int, limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, kind := clientKey(r)
			if limiter.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}

			handlerPath := route.Template(r)
			log.With(
				logger.NewField("method", r.Method),
				logger.NewField("route", handlerPath),
				logger.NewField("key", key),
				logger.NewField("key_kind", kind),
			).Warn("rate limit exceeded")

			RateLimitExceededTotal.WithLabelValues(r.Method, handlerPath, kind).Inc()

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)

			_, err := w.Write([]byte(`{"error":"Too Many Requests","message":"Rate limit exceeded. Try again later."}`))
			if err != nil {
				log.With(
					logger.NewField("error", err),
					logger.NewField("path", r.URL.Path),
				).Error("failed to write rate limit response")
			}
		})
	}
}

func clientKey(r *http.Request) (string, string) {
	if strings.HasPrefix(route.Template(r), "/session/") {
		if id := mux.Vars(r)["id"]; id != "" {
			return keyKindCourier + ":" + id, keyKindCourier
		}
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return keyKindClient + ":" + strings.TrimSpace(first), keyKindClient
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return keyKindClient + ":" + host, keyKindClient
}
