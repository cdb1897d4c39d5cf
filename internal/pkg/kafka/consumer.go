package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"courier-dispatch/internal/pkg/config"
	"courier-dispatch/pkg/logger"

	"github.com/IBM/sarama"
)

type Consumer struct {
	log     logger.Logger
	client  sarama.ConsumerGroup
	topics  []string
	handler sarama.ConsumerGroupHandler

	errorsDone sync.WaitGroup
}

func NewConsumer(
	ctx context.Context,
	log logger.Logger,
	cfg *config.Kafka,
	brokers []string,
	groupID string,
	topics []string,
	handler sarama.ConsumerGroupHandler,
) (*Consumer, error) {
	saramaConfig, err := NewSaramaConfig(cfg, groupID)
	if err != nil {
		return nil, fmt.Errorf("build sarama config: %w", err)
	}

	kafkaLog := log.With(
		logger.NewField("brokers", brokers),
		logger.NewField("group", groupID),
		logger.NewField("topics", topics),
	)

	err = waitForBrokers(ctx, kafkaLog, brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("kafka connection: %w", err)
	}

	client, err := sarama.NewConsumerGroup(brokers, groupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return newConsumer(kafkaLog, client, topics, handler), nil
}

func newConsumer(log logger.Logger, client sarama.ConsumerGroup, topics []string, handler sarama.ConsumerGroupHandler) *Consumer {
	c := &Consumer{
		log:     log,
		client:  client,
		topics:  topics,
		handler: handler,
	}

	c.errorsDone.Add(1)
	go c.logErrors()

	return c
}

// Start блокируется до отмены ctx или закрытия группы.
// Consume возвращается на каждом ребалансе, поэтому крутим его в цикле.
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info("Kafka consumer starting")

	for {
		err := c.client.Consume(ctx, c.topics, c.handler)
		switch {
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			return nil
		case err != nil:
			c.log.Error("Error from consumer", logger.NewField("error", err))
			return fmt.Errorf("consumer error: %w", err)
		}

		if ctx.Err() != nil {
			c.log.Warn("Context cancelled, stopping consumer")
			return ctx.Err()
		}
		c.log.Debug("Consumer group rebalanced, rejoining")
	}
}

// Close закрывает группу и дожидается, пока вычитаются ее ошибки.
func (c *Consumer) Close() error {
	err := c.client.Close()
	c.errorsDone.Wait()
	return err
}

func (c *Consumer) logErrors() {
	defer c.errorsDone.Done()

	for err := range c.client.Errors() {
		c.log.Warn("Consumer group error", logger.NewField("error", err))
	}
}
