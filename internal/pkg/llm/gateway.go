package llm

import (
	"Leadnest/internal/pkg/consts"
	"Leadnest/internal/pkg/meter"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
)

var (
	// ErrModelTransient 主备模型均不可用，调用方可降级或整回合重试
	ErrModelTransient = errors.New("模型服务暂不可用")
	// ErrProviderRejected 请求形态非法，重试无意义
	ErrProviderRejected = errors.New("模型请求不合法")
)

// CallMeta 贯穿每次模型调用的元数据包，计量按此归因成本
type CallMeta struct {
	OrganizationID string
	AgentID        string
	ConversationID string
	UserID         string
	Operation      string
	Endpoint       string
}

// Invocation 一次模型调用请求
type Invocation struct {
	Messages    []llms.MessageContent
	Temperature float64
	Meta        CallMeta
}

// Result 模型调用结果。Text 允许为空：空响应如何解释由调用方决定
type Result struct {
	Text     string
	Model    string
	Fallback bool
	Usage    meter.TokenUsage
}

// Gateway 弹性模型调用网关：先主模型，失败后换备用模型重试一次，
// 每次成功解析的调用都向计量器写入一条 UsageRecord
type Gateway interface {
	Invoke(ctx context.Context, inv *Invocation) (*Result, error)
}

type gatewayImpl struct {
	client   llms.Model
	meter    meter.Meter
	primary  string
	fallback string
	timeout  time.Duration
}

func NewGateway(client llms.Model, m meter.Meter, primary, fallback string, timeout time.Duration) Gateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &gatewayImpl{
		client:   client,
		meter:    m,
		primary:  primary,
		fallback: fallback,
		timeout:  timeout,
	}
}

// Invoke 按主备顺序尝试。传输层失败换模型，两次都失败返回 ErrModelTransient
func (s *gatewayImpl) Invoke(ctx context.Context, inv *Invocation) (*Result, error) {
	if inv == nil || len(inv.Messages) == 0 {
		return nil, ErrProviderRejected
	}

	if err := TextSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer TextSem.Release(1)

	models := []string{s.primary}
	if s.fallback != "" && s.fallback != s.primary {
		models = append(models, s.fallback)
	}

	var lastErr error
	for i, model := range models {
		res, err := s.attempt(ctx, inv, model, i > 0)
		if err == nil {
			return res, nil
		}
		lastErr = err
		log.WarnContext(ctx, "AI大模型请求失败，准备切换备用模型", "model", model, "err", err)
	}

	return nil, fmt.Errorf("%w: %v", ErrModelTransient, lastErr)
}

func (s *gatewayImpl) attempt(ctx context.Context, inv *Invocation, model string, isFallback bool) (*Result, error) {
	// 上游请求被取消也让本次调用跑完：费用已经产生，必须完成计量，结果丢弃即可
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.GenerateContent(callCtx, inv.Messages,
		llms.WithModel(model),
		llms.WithTemperature(inv.Temperature),
	)
	latency := time.Since(start)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Model:    model,
		Fallback: isFallback,
	}
	if len(resp.Choices) > 0 {
		res.Text = resp.Choices[0].Content
		res.Usage = usageFromChoice(resp.Choices[0])
	}

	s.meter.Record(ctx, buildRecord(inv.Meta, res, latency))
	return res, nil
}

// usageFromChoice 从 GenerationInfo 中提取用量报告，缺字段时按 0 处理
func usageFromChoice(choice *llms.ContentChoice) meter.TokenUsage {
	u := meter.TokenUsage{}
	if choice == nil || choice.GenerationInfo == nil {
		return u
	}
	u.PromptTokens = intFromInfo(choice.GenerationInfo, "PromptTokens")
	u.CompletionTokens = intFromInfo(choice.GenerationInfo, "CompletionTokens")
	u.TotalTokens = intFromInfo(choice.GenerationInfo, "TotalTokens")
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

func intFromInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func buildRecord(m CallMeta, res *Result, latency time.Duration) *meter.UsageRecord {
	op := m.Operation
	if op == "" {
		op = consts.OpReplyGenerate
	}
	return &meter.UsageRecord{
		OrganizationID: m.OrganizationID,
		AgentID:        m.AgentID,
		ConversationID: m.ConversationID,
		UserID:         m.UserID,
		Operation:      op,
		Endpoint:       m.Endpoint,
		Model:          res.Model,
		Fallback:       res.Fallback,
		TokenUsage:     res.Usage,
		Success:        true,
		LatencyMS:      latency.Milliseconds(),
		CreatedAt:      time.Now(),
	}
}
