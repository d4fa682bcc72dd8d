package dto

// TurnMessage 历史消息项
type TurnMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant system"`
	Content string `json:"content" binding:"required"`
}

// TurnRequest 回合处理请求体
type TurnRequest struct {
	ConversationID string        `json:"conversation_id" binding:"required"`
	MessageID      string        `json:"message_id"`
	OrganizationID string        `json:"organization_id"`
	AgentID        string        `json:"agent_id"`
	UserID         string        `json:"user_id"`
	PriorMessages  []TurnMessage `json:"prior_messages" binding:"dive"`
	Message        string        `json:"message" binding:"required"`
}

// IntentDTO 意图识别结果
type IntentDTO struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// BantStateDTO BANT 采集进度
type BantStateDTO struct {
	Budget    *string `json:"budget"`
	Authority *string `json:"authority"`
	Need      *string `json:"need"`
	Timeline  *string `json:"timeline"`
	Completed bool    `json:"completed"`
}

// TurnResponse 回合处理响应体
type TurnResponse struct {
	Intent    IntentDTO    `json:"intent"`
	BantState BantStateDTO `json:"bant_state"`
	ReplyText string       `json:"reply_text"`
}
