package kafka

import (
	"Leadnest/internal/model"
	"Leadnest/internal/pkg/meter"
	"Leadnest/internal/repository"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsageRepo struct {
	saved   []*model.UsageRecord
	saveErr error
}

func (f *fakeUsageRepo) Save(_ context.Context, rec *model.UsageRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeUsageRepo) GetConversationTotalTokens(context.Context, string) (int64, error) {
	return 0, nil
}

func (f *fakeUsageRepo) GetOrgTotalsBetween(context.Context, time.Time, time.Time) ([]*repository.OrgUsageTotal, error) {
	return nil, nil
}

func TestUsageHandlerLogicPersistsRecord(t *testing.T) {
	repo := &fakeUsageRepo{}
	h := NewUsageHandler(repo)

	rec := meter.UsageRecord{
		ID:             "rec-1",
		OrganizationID: "org-1",
		ConversationID: "conv-1",
		Operation:      "bant_extraction",
		Model:          "primary",
		Fallback:       true,
		TokenUsage:     meter.TokenUsage{PromptTokens: 4, CompletionTokens: 6, TotalTokens: 10},
		Success:        true,
	}
	payload, err := json.Marshal(rec)
	require.NoError(t, err)

	err = h.logic(context.Background(), &sarama.ConsumerMessage{Value: payload})
	require.NoError(t, err)
	require.Len(t, repo.saved, 1)

	row := repo.saved[0]
	assert.Equal(t, "rec-1", row.ID)
	assert.Equal(t, "org-1", row.OrganizationID)
	assert.Equal(t, "bant_extraction", row.Operation)
	assert.True(t, row.Fallback)
	assert.Equal(t, 10, row.TotalTokens)
}

func TestUsageHandlerLogicSkipsBadPayload(t *testing.T) {
	repo := &fakeUsageRepo{}
	h := NewUsageHandler(repo)

	// 脏消息没有重试价值，跳过且不报错
	err := h.logic(context.Background(), &sarama.ConsumerMessage{Value: []byte("not json")})
	assert.NoError(t, err)
	assert.Empty(t, repo.saved)
}

func TestUsageHandlerLogicPropagatesSaveError(t *testing.T) {
	repo := &fakeUsageRepo{saveErr: errors.New("db down")}
	h := NewUsageHandler(repo)

	payload, err := json.Marshal(meter.UsageRecord{ID: "rec-1"})
	require.NoError(t, err)

	err = h.logic(context.Background(), &sarama.ConsumerMessage{Value: payload})
	assert.Error(t, err)
}
