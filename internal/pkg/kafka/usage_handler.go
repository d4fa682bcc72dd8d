package kafka

import (
	"Leadnest/internal/model"
	"Leadnest/internal/pkg/meter"
	"Leadnest/internal/repository"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// UsageHandler 消费 usage topic，把计量记录沉淀到 MySQL 供账单对账
type UsageHandler struct {
	usageRepo repository.UsageRecordRepo
}

func NewUsageHandler(usageRepo repository.UsageRecordRepo) *UsageHandler {
	return &UsageHandler{usageRepo: usageRepo}
}

func (s *UsageHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("usage consumer setup")
	return nil
}

func (s *UsageHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("usage consumer cleanup")
	return nil
}

func (s *UsageHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-usage consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("topic-usage process batch error", "err", err)
		return err
	}
	return nil
}

func (s *UsageHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var rec meter.UsageRecord
	if err := json.Unmarshal(msg.Value, &rec); err != nil {
		// 脏消息没有重试价值，记日志后跳过
		log.ErrorContext(ctx, "unmarshal usage record error", "err", err)
		return nil
	}

	row := &model.UsageRecord{
		ID:               rec.ID,
		OrganizationID:   rec.OrganizationID,
		AgentID:          rec.AgentID,
		ConversationID:   rec.ConversationID,
		UserID:           rec.UserID,
		Operation:        rec.Operation,
		Endpoint:         rec.Endpoint,
		Model:            rec.Model,
		Fallback:         rec.Fallback,
		PromptTokens:     rec.PromptTokens,
		CompletionTokens: rec.CompletionTokens,
		TotalTokens:      rec.TotalTokens,
		Success:          rec.Success,
		LatencyMS:        rec.LatencyMS,
		CreatedAt:        rec.CreatedAt,
	}

	if err := s.usageRepo.Save(ctx, row); err != nil {
		return errors.Wrap(err, "save usage record")
	}
	return nil
}
