package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"courier-dispatch/internal/pkg/config"
	"courier-dispatch/pkg/logger"
	retrierconfig "courier-dispatch/pkg/retrier"
	"courier-dispatch/pkg/retrier/backoff_adapter"

	"github.com/IBM/sarama"
)

const (
	connectInitialInterval = 1 * time.Second
	connectMaxInterval     = 30 * time.Second
	connectMaxElapsedTime  = 2 * time.Minute
	connectRandomization   = 0.5
	connectMultiplier      = 2

	producerMaxRetries = 5
)

// NewSaramaConfig собирает общую часть настроек клиента.
// Ошибки группы потребителей отдаются в канал Errors, их вычитывает Consumer.
func NewSaramaConfig(cfg *config.Kafka, clientID string) (*sarama.Config, error) {
	version, err := sarama.ParseKafkaVersion(cfg.Sarama.Version)
	if err != nil {
		return nil, fmt.Errorf("parse kafka version %q: %w", cfg.Sarama.Version, err)
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = version
	saramaConfig.ClientID = clientID

	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = cfg.Sarama.ConsumerOffsetsAutocommit
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{
		sarama.NewBalanceStrategyRoundRobin(),
	}
	saramaConfig.Consumer.Return.Errors = true

	// результаты диспатча с одним task id должны попадать в одну партицию
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = producerMaxRetries
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	return saramaConfig, nil
}

// ParseBrokers разбирает список брокеров через запятую.
func ParseBrokers(raw string) []string {
	brokers := strings.Split(raw, ",")
	result := make([]string, 0, len(brokers))
	for _, b := range brokers {
		b = strings.TrimSpace(b)
		if b != "" {
			result = append(result, b)
		}
	}
	return result
}

// waitForBrokers ждет, пока кластер начнет отдавать метаданные.
func waitForBrokers(ctx context.Context, log logger.Logger, brokers []string, cfg *sarama.Config) error {
	retrier := backoff_adapter.New(retrierconfig.Config{
		InitialInterval: connectInitialInterval,
		MaxInterval:     connectMaxInterval,
		MaxElapsedTime:  connectMaxElapsedTime,
		Randomization:   connectRandomization,
		Multiplier:      connectMultiplier,
	})

	var attempt uint64
	err := retrier.ExecuteWithContext(ctx, func(ctx context.Context) error {
		attempt++
		log.Debug("attempting Kafka connection", logger.NewField("attempt", attempt))

		client, err := sarama.NewClient(brokers, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				log.Warn("failed to close Kafka probe client", logger.NewField("error", err))
			}
		}()

		_, err = client.Topics()
		return err
	})
	if err != nil {
		log.With(
			logger.NewField("error", err),
			logger.NewField("attempts", attempt),
		).Error("Kafka connection failed after retries")
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}

	log.Info("Kafka connection established", logger.NewField("attempts", attempt))
	return nil
}
