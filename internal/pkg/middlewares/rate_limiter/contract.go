package rate_limiter

import "courier-dispatch/pkg/logger"

// Limiter решает по ключу клиента, пропускать ли запрос.
type Limiter interface {
	Allow(key string) bool
}

type handlerLogger interface {
	Info(msg string, fields ...logger.Field)
	Warn(msg string, fields ...logger.Field)
	Error(msg string, fields ...logger.Field)
	With(fields ...logger.Field) logger.Logger
}
