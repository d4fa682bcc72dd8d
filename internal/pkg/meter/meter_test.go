package meter

import (
	"Leadnest/internal/pkg/consts"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	rec := &UsageRecord{
		ConversationID: "conv-1",
		TokenUsage:     TokenUsage{PromptTokens: 10, CompletionTokens: 5},
	}
	Normalize(rec)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, consts.SystemActor, rec.OrganizationID)
	assert.Equal(t, consts.SystemActor, rec.AgentID)
	assert.Equal(t, 15, rec.TotalTokens)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := &UsageRecord{
		ID:             "fixed-id",
		OrganizationID: "org-1",
		AgentID:        "agent-1",
		TokenUsage:     TokenUsage{TotalTokens: 99},
		CreatedAt:      at,
	}
	Normalize(rec)

	assert.Equal(t, "fixed-id", rec.ID)
	assert.Equal(t, "org-1", rec.OrganizationID)
	assert.Equal(t, "agent-1", rec.AgentID)
	assert.Equal(t, 99, rec.TotalTokens)
	assert.Equal(t, at, rec.CreatedAt)
}

func TestAggregatorTotals(t *testing.T) {
	agg := NewAggregator()
	ctx := context.Background()

	agg.Record(ctx, &UsageRecord{ConversationID: "conv-1", TokenUsage: TokenUsage{TotalTokens: 20}})
	agg.Record(ctx, &UsageRecord{ConversationID: "conv-1", TokenUsage: TokenUsage{TotalTokens: 30}})
	agg.Record(ctx, &UsageRecord{ConversationID: "conv-2", TokenUsage: TokenUsage{TotalTokens: 7}})
	agg.Record(ctx, nil)

	assert.Equal(t, 50, agg.TotalTokensByConversation("conv-1"))
	assert.Equal(t, 7, agg.TotalTokensByConversation("conv-2"))
	assert.Equal(t, 0, agg.TotalTokensByConversation("conv-3"))
	assert.Len(t, agg.Records(), 3)
}

func TestAggregatorRecordCopies(t *testing.T) {
	agg := NewAggregator()
	rec := &UsageRecord{ConversationID: "conv-1", TokenUsage: TokenUsage{TotalTokens: 5}}
	agg.Record(context.Background(), rec)

	rec.TotalTokens = 999
	assert.Equal(t, 5, agg.TotalTokensByConversation("conv-1"))
}

// fakeProducer 收集投递的消息
type fakeProducer struct {
	mu   sync.Mutex
	msgs []*sarama.ProducerMessage
}

func (f *fakeProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return 0, int64(len(f.msgs)), nil
}

func TestKafkaMeterDeliversRecord(t *testing.T) {
	producer := &fakeProducer{}
	m := NewKafkaMeter(producer, "leadnest.usage")

	m.Record(context.Background(), &UsageRecord{
		OrganizationID: "org-1",
		ConversationID: "conv-1",
		Operation:      consts.OpBantExtract,
		TokenUsage:     TokenUsage{PromptTokens: 4, CompletionTokens: 6},
	})
	m.Close()

	require.Len(t, producer.msgs, 1)
	msg := producer.msgs[0]
	assert.Equal(t, "leadnest.usage", msg.Topic)

	key, err := msg.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "conv-1", string(key))

	payload, err := msg.Value.Encode()
	require.NoError(t, err)
	var rec UsageRecord
	require.NoError(t, json.Unmarshal(payload, &rec))
	assert.Equal(t, "org-1", rec.OrganizationID)
	assert.Equal(t, consts.OpBantExtract, rec.Operation)
	assert.Equal(t, 10, rec.TotalTokens)
	assert.NotEmpty(t, rec.ID)
}

func TestKafkaMeterNilRecordIgnored(t *testing.T) {
	producer := &fakeProducer{}
	m := NewKafkaMeter(producer, "leadnest.usage")

	m.Record(context.Background(), nil)
	m.Close()

	assert.Empty(t, producer.msgs)
}
