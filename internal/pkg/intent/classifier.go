package intent

import (
	"Leadnest/internal/pkg/consts"
	"Leadnest/internal/pkg/llm"
	"context"
	log "log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// Classifier 意图识别器：确定性模式匹配优先，必要时回落到模型。
// 识别过程永不失败，最坏情况返回安全默认标签
type Classifier interface {
	Classify(ctx context.Context, message string, meta llm.CallMeta) *Result
}

type classifierImpl struct {
	gateway llm.Gateway
	prompt  string
}

func NewClassifier(gateway llm.Gateway, prompt string) Classifier {
	return &classifierImpl{
		gateway: gateway,
		prompt:  prompt,
	}
}

func (s *classifierImpl) Classify(ctx context.Context, message string, meta llm.CallMeta) *Result {
	score := ScoreQualification(message)

	// 高置信度的确定性命中直接短路，省掉一次模型调用
	if score >= HighConfidence {
		return &Result{Label: LabelBANT, Confidence: score, Source: SourcePattern}
	}

	meta.Operation = consts.OpIntentClassify

	systemPrompt := s.prompt
	if score >= MediumConfidence {
		// 中等强度的确定性信号只作偏置，不直接定论：单个关键词可能出现在闲聊里
		systemPrompt += "\n\n注意：该消息命中了部分资质采集信号，判别存疑时优先返回 BANT。"
	}

	res, err := s.gateway.Invoke(ctx, &llm.Invocation{
		Messages: []llms.MessageContent{
			{
				Role:  llms.ChatMessageTypeSystem,
				Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
			},
			{
				Role:  llms.ChatMessageTypeHuman,
				Parts: []llms.ContentPart{llms.TextPart(message)},
			},
		},
		Temperature: 0.1,
		Meta:        meta,
	})
	if err != nil {
		log.ErrorContext(ctx, "意图识别-AI大模型请求失败", "err", err)
		if score >= MediumConfidence {
			return &Result{Label: LabelBANT, Confidence: score, Source: SourcePatternFallback}
		}
		return &Result{Label: DefaultLabel, Confidence: 0, Source: SourcePatternFallback}
	}

	// 空响应不允许让回合失败：有中等信号就按信号走，否则回默认标签
	if strings.TrimSpace(res.Text) == "" {
		if score >= MediumConfidence {
			return &Result{Label: LabelBANT, Confidence: score, Source: SourcePatternFallback}
		}
		return &Result{Label: DefaultLabel, Confidence: 0, Source: SourceModel}
	}

	label, ok := ParseLabel(res.Text)
	if !ok {
		log.WarnContext(ctx, "意图识别-AI大模型返回数据无法解析", "text", res.Text)
		return &Result{Label: DefaultLabel, Confidence: 0, Source: SourceModel}
	}

	confidence := 0.8
	if label == LabelBANT && score > 0 {
		confidence = maxFloat(confidence, score)
	}
	return &Result{Label: label, Confidence: confidence, Source: SourceModel}
}

// ParseLabel 清洗模型输出并匹配闭集标签
func ParseLabel(text string) (Label, bool) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.Trim(cleaned, "\"' \n\t")

	for label := range validLabels {
		if strings.EqualFold(cleaned, string(label)) {
			return label, true
		}
	}
	return DefaultLabel, false
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
