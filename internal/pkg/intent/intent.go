package intent

// Label 闭集意图标签，未识别一律落到安全默认值 GeneralChat
type Label string

const (
	LabelBANT           Label = "BANT"
	LabelPropertySearch Label = "PropertySearch"
	LabelScheduling     Label = "Scheduling"
	LabelGeneralChat    Label = "GeneralChat"
)

// DefaultLabel 分类失败时的安全兜底：不触发任何特殊处理
const DefaultLabel = LabelGeneralChat

var validLabels = map[Label]bool{
	LabelBANT:           true,
	LabelPropertySearch: true,
	LabelScheduling:     true,
	LabelGeneralChat:    true,
}

const (
	SourcePattern         = "pattern"
	SourceModel           = "model"
	SourcePatternFallback = "pattern-fallback"
)

// 双阈值：高置信度直接短路模型调用，中置信度仅作为模型解释的偏置
const (
	HighConfidence   = 0.7
	MediumConfidence = 0.5
)

// Result 单回合意图识别结果，不落库，由编排器即时消费
type Result struct {
	Label      Label
	Confidence float64
	Source     string
}
