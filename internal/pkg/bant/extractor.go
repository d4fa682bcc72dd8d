package bant

import (
	"Leadnest/internal/pkg/consts"
	"Leadnest/internal/pkg/llm"
	"context"
	log "log/slog"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tmc/langchaingo/llms"
)

// Extractor BANT 提取器：确定性模式先行，模型补齐，合并后永不回退已确认字段。
// 网关彻底失败时返回先前状态，下一轮再问，绝不让会话崩掉
type Extractor interface {
	Extract(ctx context.Context, conversationID, messageID, message string, prior State, meta llm.CallMeta) State
}

type extractorImpl struct {
	gateway llm.Gateway
	cache   *DedupCache
	prompt  string
}

func NewExtractor(gateway llm.Gateway, cache *DedupCache, prompt string) Extractor {
	return &extractorImpl{
		gateway: gateway,
		cache:   cache,
		prompt:  prompt,
	}
}

func (s *extractorImpl) Extract(ctx context.Context, conversationID, messageID, message string, prior State, meta llm.CallMeta) State {
	key := DedupKey(conversationID, messageID)
	if cached, ok := s.cache.Get(key); ok {
		log.InfoContext(ctx, "BANT提取-命中去重缓存", "conversation_id", conversationID, "message_id", messageID)
		return cached
	}

	hints := PatternHints(message)

	meta.Operation = consts.OpBantExtract
	res, err := s.gateway.Invoke(ctx, &llm.Invocation{
		Messages:    s.buildMessages(message, prior),
		Temperature: 0.1,
		Meta:        meta,
	})
	if err != nil {
		// 主备模型都挂了：保持先前状态原样返回，下一轮重新采集
		log.ErrorContext(ctx, "BANT提取-AI大模型请求失败", "err", err)
		return prior
	}

	next := Merge(prior, hints)

	modelEx, ok := parseExtraction(res.Text)
	if !ok {
		log.WarnContext(ctx, "BANT提取-AI大模型返回数据解析失败，仅采用模式命中结果", "text", res.Text)
	} else {
		next = Merge(next, normalizeExtraction(modelEx))
	}

	s.cache.Put(key, next)
	return next
}

func (s *extractorImpl) buildMessages(message string, prior State) []llms.MessageContent {
	stateJSON, _ := json.Marshal(prior)
	userPayload := "当前已采集状态: " + string(stateJSON) + "\n用户消息: " + message

	return []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(s.prompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(userPayload)},
		},
	}
}

// parseExtraction 清洗模型输出并解析结构化提取结果
func parseExtraction(text string) (Extraction, bool) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return Extraction{}, false
	}
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var ex Extraction
	if err := json.Unmarshal([]byte(cleaned), &ex); err != nil {
		return Extraction{}, false
	}
	return ex, true
}

// normalizeExtraction 模型的自由文本字段也过一遍归一化，闭集之外一律作废
func normalizeExtraction(ex Extraction) Extraction {
	out := Extraction{}
	if ex.Budget != nil {
		out.Budget = NormalizeBudget(*ex.Budget)
	}
	if ex.Authority != nil {
		out.Authority = NormalizeAuthority(*ex.Authority)
	}
	if ex.Need != nil {
		out.Need = NormalizeNeed(*ex.Need)
	}
	if ex.Timeline != nil {
		out.Timeline = NormalizeTimeline(*ex.Timeline)
	}
	return out
}
