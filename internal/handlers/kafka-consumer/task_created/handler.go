package task_created

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"courier-dispatch/internal/entities"
	"courier-dispatch/internal/handlers/rest/dto"
	"courier-dispatch/internal/service/dispatch"
	"courier-dispatch/pkg/logger"

	"github.com/IBM/sarama"
)

const publishTimeout = 10 * time.Second

type Handler struct {
	dispatchService          Service
	publisher                Publisher
	log                      handlerLogger
	defaultRadiusMeters      float64
	messageProcessingTimeout time.Duration
}

func New(log handlerLogger, dispatchService Service, publisher Publisher, defaultRadiusMeters float64, timeout time.Duration) *Handler {
	handlerLog := log.With(logger.NewField("handler", "task_created"))

	return &Handler{
		dispatchService:          dispatchService,
		publisher:                publisher,
		log:                      handlerLog,
		defaultRadiusMeters:      defaultRadiusMeters,
		messageProcessingTimeout: timeout,
	}
}

func (h *Handler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *Handler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *Handler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				h.log.Info("task.created: claim.Messages() closed, exiting ConsumeClaim")
				return nil
			}

			shouldExit := h.messageProcessing(sess, message)
			if shouldExit {
				return nil
			}

		case <-sess.Context().Done():
			// rebalance или остановка consumer group
			h.log.Info("task.created: session context done, exiting ConsumeClaim")
			return nil
		}
	}
}

// messageProcessing запускает диспетчеризацию по одному сообщению.
// Сообщение коммитится, как только диспетчеризация принята: ее итог
// уходит в топик результатов из колбэка, когда курьер найден или пул исчерпан.
// Возвращает true, если ConsumeClaim нужно прервать, не коммитя сообщение.
func (h *Handler) messageProcessing(sess sarama.ConsumerGroupSession, message *sarama.ConsumerMessage) bool {
	ctx, cancel := context.WithTimeout(sess.Context(), h.messageProcessingTimeout)
	defer cancel()

	var event dto.DispatchCreate
	err := json.Unmarshal(message.Value, &event)
	if err != nil {
		h.log.With(
			logger.NewField("error", err),
			logger.NewField("offset", message.Offset),
		).Error("task.created handler received bad message")
		sess.MarkMessage(message, "")
		return false
	}
	if event.Task.ID == "" {
		event.Task.ID = string(message.Key)
	}

	msgLog := h.log.With(
		logger.NewField("task_id", event.Task.ID),
		logger.NewField("partition", message.Partition),
		logger.NewField("offset", message.Offset),
	)
	msgLog.Info("task.created processing")

	req, err := event.ToRequest(h.defaultRadiusMeters)
	if err != nil {
		msgLog.With(
			logger.NewField("error", err),
		).Warn("task.created handler invalid dispatch request")
		sess.MarkMessage(message, "")
		return false
	}

	started, err := h.dispatchService.Submit(ctx, req, h.publishResult)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded),
			errors.Is(err, dispatch.ErrShuttingDown):
			msgLog.With(
				logger.NewField("error", err),
			).Warn("task.created handler stopping, message will be reprocessed")
			return true

		case errors.Is(err, dispatch.ErrAlreadyDispatching):
			msgLog.Info("task.created duplicate delivery, dispatch already running")

		case errors.Is(err, dispatch.ErrInvalidRequest):
			msgLog.With(
				logger.NewField("error", err),
			).Warn("task.created handler invalid dispatch request")

		default:
			msgLog.With(
				logger.NewField("error", err),
			).Error("task.created handler failed to start dispatch")
		}
		sess.MarkMessage(message, "")
		return false
	}

	msgLog.With(
		logger.NewField("dispatch_id", started.DispatchID),
	).Info("task.created: dispatch started")

	sess.MarkMessage(message, "")
	return false
}

// publishResult - колбэк диспетчеризации, вызывается из ее горутины.
func (h *Handler) publishResult(result entities.DispatchResult) {
	resultLog := h.log.With(
		logger.NewField("dispatch_id", result.DispatchID),
		logger.NewField("task_id", result.TaskID),
		logger.NewField("state", result.State.String()),
	)

	payload, err := json.Marshal(dto.FromDispatchResult(result))
	if err != nil {
		resultLog.With(
			logger.NewField("error", err),
		).Error("encode dispatch result")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = h.publisher.Publish(ctx, result.TaskID, payload)
	if err != nil {
		resultLog.With(
			logger.NewField("error", err),
		).Error("publish dispatch result")
		return
	}
	resultLog.Info("dispatch result published")
}
