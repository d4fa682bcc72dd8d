package llm

import (
	"Leadnest/internal/pkg/consts"
	"Leadnest/internal/pkg/meter"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel 可编程的 llms.Model 替身，按请求的模型名决定成败
type fakeModel struct {
	mu         sync.Mutex
	calls      []string
	failModels map[string]bool
	text       string
	usage      map[string]any
	onCall     func()
}

func (f *fakeModel) GenerateContent(_ context.Context, _ []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, o := range options {
		o(&opts)
	}

	f.mu.Lock()
	f.calls = append(f.calls, opts.Model)
	f.mu.Unlock()

	if f.onCall != nil {
		f.onCall()
	}
	if f.failModels[opts.Model] {
		return nil, errors.New("upstream 503")
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: f.text, GenerationInfo: f.usage},
		},
	}, nil
}

func (f *fakeModel) Call(context.Context, string, ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func defaultUsage() map[string]any {
	return map[string]any{"PromptTokens": 12, "CompletionTokens": 8, "TotalTokens": 20}
}

func testInvocation() *Invocation {
	return &Invocation{
		Messages: []llms.MessageContent{
			{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart("hi")}},
		},
		Meta: CallMeta{
			OrganizationID: "org-1",
			ConversationID: "conv-1",
			Operation:      consts.OpReplyGenerate,
		},
	}
}

func TestInvokePrimarySuccess(t *testing.T) {
	model := &fakeModel{text: "hello", usage: defaultUsage()}
	agg := meter.NewAggregator()
	gw := NewGateway(model, agg, "primary", "fallback", time.Second)

	res, err := gw.Invoke(context.Background(), testInvocation())
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, "primary", res.Model)
	assert.False(t, res.Fallback)
	assert.Equal(t, meter.TokenUsage{PromptTokens: 12, CompletionTokens: 8, TotalTokens: 20}, res.Usage)

	assert.Equal(t, []string{"primary"}, model.calls)

	records := agg.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "primary", records[0].Model)
	assert.False(t, records[0].Fallback)
	assert.True(t, records[0].Success)
	assert.Equal(t, 20, records[0].TotalTokens)
}

func TestInvokeFallbackExactlyOnce(t *testing.T) {
	model := &fakeModel{
		text:       "from fallback",
		usage:      defaultUsage(),
		failModels: map[string]bool{"primary": true},
	}
	agg := meter.NewAggregator()
	gw := NewGateway(model, agg, "primary", "fallback", time.Second)

	res, err := gw.Invoke(context.Background(), testInvocation())
	require.NoError(t, err)
	assert.Equal(t, "fallback", res.Model)
	assert.True(t, res.Fallback)

	// 主一次、备一次，绝不多试
	assert.Equal(t, []string{"primary", "fallback"}, model.calls)

	// 失败的主模型调用没有可用的用量报告，只有成功的备模型调用被计量
	records := agg.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].Fallback)
}

func TestInvokeBothFailReturnsTransient(t *testing.T) {
	model := &fakeModel{failModels: map[string]bool{"primary": true, "fallback": true}}
	agg := meter.NewAggregator()
	gw := NewGateway(model, agg, "primary", "fallback", time.Second)

	_, err := gw.Invoke(context.Background(), testInvocation())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelTransient)
	assert.Equal(t, []string{"primary", "fallback"}, model.calls)
	assert.Empty(t, agg.Records())
}

func TestInvokeEmptyInvocationRejected(t *testing.T) {
	model := &fakeModel{text: "x"}
	gw := NewGateway(model, meter.NewAggregator(), "primary", "fallback", time.Second)

	_, err := gw.Invoke(context.Background(), nil)
	assert.ErrorIs(t, err, ErrProviderRejected)

	_, err = gw.Invoke(context.Background(), &Invocation{})
	assert.ErrorIs(t, err, ErrProviderRejected)
	assert.Empty(t, model.calls)
}

func TestInvokeSameFallbackModelNotRetried(t *testing.T) {
	model := &fakeModel{failModels: map[string]bool{"only": true}}
	gw := NewGateway(model, meter.NewAggregator(), "only", "only", time.Second)

	_, err := gw.Invoke(context.Background(), testInvocation())
	assert.ErrorIs(t, err, ErrModelTransient)
	assert.Equal(t, []string{"only"}, model.calls)
}

func TestInvokeEmptyTextIsNotAnError(t *testing.T) {
	// 空响应不是传输失败，解释权归调用方，用量照常计量
	model := &fakeModel{text: "", usage: defaultUsage()}
	agg := meter.NewAggregator()
	gw := NewGateway(model, agg, "primary", "fallback", time.Second)

	res, err := gw.Invoke(context.Background(), testInvocation())
	require.NoError(t, err)
	assert.Equal(t, "", res.Text)
	assert.Equal(t, []string{"primary"}, model.calls)
	require.Len(t, agg.Records(), 1)
}

func TestInvokeCancelledUpstreamStillMeters(t *testing.T) {
	model := &fakeModel{text: "done", usage: defaultUsage()}
	agg := meter.NewAggregator()
	gw := NewGateway(model, agg, "primary", "fallback", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// 调用进行中上游取消：调用仍需完成并计量，成本已经发生
	model.onCall = cancel

	res, err := gw.Invoke(ctx, testInvocation())
	require.NoError(t, err)
	assert.Equal(t, "done", res.Text)
	require.Len(t, agg.Records(), 1)
}

func TestInvokeMissingMetadataAttributedToSystem(t *testing.T) {
	model := &fakeModel{text: "x", usage: defaultUsage()}
	agg := meter.NewAggregator()
	gw := NewGateway(model, agg, "primary", "fallback", time.Second)

	inv := testInvocation()
	inv.Meta = CallMeta{ConversationID: "conv-1"}

	_, err := gw.Invoke(context.Background(), inv)
	require.NoError(t, err)

	records := agg.Records()
	require.Len(t, records, 1)
	assert.Equal(t, consts.SystemActor, records[0].OrganizationID)
	assert.Equal(t, consts.SystemActor, records[0].AgentID)
	assert.NotEmpty(t, records[0].ID)
}

func TestUsageFromChoiceTolerantTypes(t *testing.T) {
	choice := &llms.ContentChoice{GenerationInfo: map[string]any{
		"PromptTokens":     float64(7),
		"CompletionTokens": int64(3),
	}}
	u := usageFromChoice(choice)
	assert.Equal(t, 7, u.PromptTokens)
	assert.Equal(t, 3, u.CompletionTokens)
	assert.Equal(t, 10, u.TotalTokens)

	assert.Equal(t, meter.TokenUsage{}, usageFromChoice(nil))
}
