package bant

import (
	"Leadnest/internal/pkg/llm"
	"Leadnest/internal/pkg/meter"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway 可编程网关替身，记录调用次数
type fakeGateway struct {
	calls int
	text  string
	err   error
}

func (f *fakeGateway) Invoke(_ context.Context, _ *llm.Invocation) (*llm.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Result{Text: f.text, Model: "primary", Usage: meter.TokenUsage{TotalTokens: 10}}, nil
}

func TestExtractMergesModelAndPatternHints(t *testing.T) {
	gw := &fakeGateway{text: `{"budget": null, "authority": "yes", "need": null, "timeline": null}`}
	ex := NewExtractor(gw, NewDedupCache(0), "prompt")

	next := ex.Extract(context.Background(), "conv-1", "msg-1", "my budget is 25M", State{}, llm.CallMeta{})

	require.NotNil(t, next.Budget)
	assert.Equal(t, "25M", *next.Budget)
	require.NotNil(t, next.Authority)
	assert.Equal(t, AuthorityYes, *next.Authority)
	assert.Nil(t, next.Need)
	assert.False(t, next.Completed)
	assert.Equal(t, 1, gw.calls)
}

func TestExtractDedupSameMessage(t *testing.T) {
	gw := &fakeGateway{text: `{"budget": "25M"}`}
	ex := NewExtractor(gw, NewDedupCache(0), "prompt")
	ctx := context.Background()

	first := ex.Extract(ctx, "conv-1", "msg-1", "25M", State{}, llm.CallMeta{})
	second := ex.Extract(ctx, "conv-1", "msg-1", "25M", State{}, llm.CallMeta{})

	// 同一 (会话, 消息) 只允许产生一次计费调用
	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, first, second)
}

func TestExtractDifferentMessagesNotDeduped(t *testing.T) {
	gw := &fakeGateway{text: `{}`}
	ex := NewExtractor(gw, NewDedupCache(0), "prompt")
	ctx := context.Background()

	ex.Extract(ctx, "conv-1", "msg-1", "25M", State{}, llm.CallMeta{})
	ex.Extract(ctx, "conv-1", "msg-2", "yes I decide", State{}, llm.CallMeta{})

	assert.Equal(t, 2, gw.calls)
}

func TestExtractGatewayFailureReturnsPriorUnchanged(t *testing.T) {
	gw := &fakeGateway{err: llm.ErrModelTransient}
	ex := NewExtractor(gw, NewDedupCache(0), "prompt")

	prior := State{Budget: strPtr("25M")}
	next := ex.Extract(context.Background(), "conv-1", "msg-1", "I decide, move in asap", prior, llm.CallMeta{})

	assert.Equal(t, prior, next)
}

func TestExtractGatewayFailureNotCached(t *testing.T) {
	gw := &fakeGateway{err: errors.New("boom")}
	cache := NewDedupCache(0)
	ex := NewExtractor(gw, cache, "prompt")
	ctx := context.Background()

	ex.Extract(ctx, "conv-1", "msg-1", "25M", State{}, llm.CallMeta{})
	assert.Equal(t, 0, cache.Len())

	// 故障恢复后同一消息重试必须真正重新提取
	gw.err = nil
	gw.text = `{}`
	next := ex.Extract(ctx, "conv-1", "msg-1", "25M", State{}, llm.CallMeta{})
	assert.Equal(t, 2, gw.calls)
	require.NotNil(t, next.Budget)
	assert.Equal(t, "25M", *next.Budget)
}

func TestExtractUnparsableModelOutputKeepsHints(t *testing.T) {
	gw := &fakeGateway{text: "sorry, I cannot help with that"}
	ex := NewExtractor(gw, NewDedupCache(0), "prompt")

	next := ex.Extract(context.Background(), "conv-1", "msg-1", "budget around 800K", State{}, llm.CallMeta{})

	require.NotNil(t, next.Budget)
	assert.Equal(t, "800K", *next.Budget)
}

func TestExtractFenceStrippedModelOutput(t *testing.T) {
	gw := &fakeGateway{text: "```json\n{\"need\": \"investment\"}\n```"}
	ex := NewExtractor(gw, NewDedupCache(0), "prompt")

	next := ex.Extract(context.Background(), "conv-1", "msg-1", "hello", State{}, llm.CallMeta{})

	require.NotNil(t, next.Need)
	assert.Equal(t, NeedInvestment, *next.Need)
}

func TestExtractModelCannotClearConfirmedField(t *testing.T) {
	gw := &fakeGateway{text: `{"budget": null, "authority": null, "need": null, "timeline": null}`}
	ex := NewExtractor(gw, NewDedupCache(0), "prompt")

	prior := State{Budget: strPtr("25M"), Timeline: strPtr(Timeline1To3)}
	next := ex.Extract(context.Background(), "conv-1", "msg-9", "ok", prior, llm.CallMeta{})

	require.NotNil(t, next.Budget)
	assert.Equal(t, "25M", *next.Budget)
	require.NotNil(t, next.Timeline)
	assert.Equal(t, Timeline1To3, *next.Timeline)
}
