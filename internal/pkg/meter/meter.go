package meter

import (
	"context"
	"time"

	"Leadnest/internal/pkg/consts"

	"github.com/google/uuid"
)

// TokenUsage 单次模型调用的 token 用量报告
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// UsageRecord 一次计费调用的不可变计量记录
type UsageRecord struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	AgentID        string    `json:"agent_id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Operation      string    `json:"operation"`
	Endpoint       string    `json:"endpoint"`
	Model          string    `json:"model"`
	Fallback       bool      `json:"fallback"`
	TokenUsage
	Success        bool      `json:"success"`
	LatencyMS      int64     `json:"latency_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// Meter 计量入口。实现方必须保证 Record 不阻塞、不向调用方返回错误：
// 计量失败只记日志，不能拖垮对话主链路
type Meter interface {
	Record(ctx context.Context, rec *UsageRecord)
}

// Normalize 补全记录的兜底字段。元数据缺失时归属到 system，保证计费不丢
func Normalize(rec *UsageRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.OrganizationID == "" {
		rec.OrganizationID = consts.SystemActor
	}
	if rec.AgentID == "" {
		rec.AgentID = consts.SystemActor
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.TotalTokens == 0 {
		rec.TotalTokens = rec.PromptTokens + rec.CompletionTokens
	}
}
