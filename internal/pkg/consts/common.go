package consts

// 计量操作类型，用于 UsageRecord 按操作归因成本
const (
	OpIntentClassify = "intent_classification"
	OpBantExtract    = "bant_extraction"
	OpReplyGenerate  = "reply_generation"
)

// SystemActor 元数据缺失时的兜底归属，计费数据不允许静默丢弃
const SystemActor = "system"

// TurnEndpoint 入站回合处理接口
const TurnEndpoint = "/api/agent/turn"
