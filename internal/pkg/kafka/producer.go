package kafka

import (
	"context"
	"fmt"

	"courier-dispatch/internal/pkg/config"
	"courier-dispatch/pkg/logger"

	"github.com/IBM/sarama"
)

type Producer struct {
	log      logger.Logger
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(ctx context.Context, log logger.Logger, cfg *config.Kafka, brokers []string, topic string) (*Producer, error) {
	saramaConfig, err := NewSaramaConfig(cfg, topic+"-producer")
	if err != nil {
		return nil, fmt.Errorf("build sarama config: %w", err)
	}

	producerLog := log.With(
		logger.NewField("brokers", brokers),
		logger.NewField("topic", topic),
	)

	err = waitForBrokers(ctx, producerLog, brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("kafka connection: %w", err)
	}

	producer, err := sarama.NewSyncProducer(brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	return newProducer(producerLog, producer, topic), nil
}

func newProducer(log logger.Logger, producer sarama.SyncProducer, topic string) *Producer {
	return &Producer{
		log:      log,
		producer: producer,
		topic:    topic,
	}
}

// Publish отправляет сообщение с ключом, ключ определяет партицию.
func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("send message to %s: %w", p.topic, err)
	}

	p.log.Debug("message published",
		logger.NewField("key", key),
		logger.NewField("partition", partition),
		logger.NewField("offset", offset),
	)
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
