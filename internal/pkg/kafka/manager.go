package kafka

import (
	"Leadnest/internal/api/config"
	"Leadnest/internal/repository"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理所有 Kafka 消费者
type ConsumerManager struct {
	usageConsumer sarama.ConsumerGroup
	usageHandler  sarama.ConsumerGroupHandler
}

// NewConsumerManager 构造函数
func NewConsumerManager(cfg *config.Config, usageRepo repository.UsageRecordRepo) (*ConsumerManager, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	usageConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaUsageConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}
	usageHandler := NewUsageHandler(usageRepo)

	return &ConsumerManager{
		usageConsumer: usageConsumer,
		usageHandler:  usageHandler,
	}, nil
}

// Start 启动所有消费者
func (m *ConsumerManager) Start(ctx context.Context, cfg *config.Config) error {
	go func() {
		topic := cfg.KafkaUsageConsumer.Topic
		log.Info("Usage consumer started", "topic", topic)
		for {
			if err := m.usageConsumer.Consume(ctx, []string{topic}, m.usageHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.usageConsumer.Close(); err != nil {
		log.Error("Failed to close usage consumer", "err", err)
	}

	return nil
}
