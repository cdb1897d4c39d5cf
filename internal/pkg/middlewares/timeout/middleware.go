package timeout

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrRequestTimeout - причина отмены контекста запроса по таймауту,
// хендлеры отличают ее от разрыва соединения через context.Cause.
var ErrRequestTimeout = errors.New("request timeout")

func Middleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// r.Context() = ongoingCtx (из BaseContext)
			ctx, cancel := context.WithTimeoutCause(r.Context(), timeout, ErrRequestTimeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Exceeded - истек ли таймаут, выставленный Middleware.
func Exceeded(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), ErrRequestTimeout)
}
