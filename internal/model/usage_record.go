package model

import "time"

// UsageRecord 计费调用计量表，追加写，落库后不再变更
type UsageRecord struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrganizationID   string    `gorm:"index:idx_org_created;type:varchar(64);not null" json:"organizationId"`
	AgentID          string    `gorm:"type:varchar(64);not null" json:"agentId"`
	ConversationID   string    `gorm:"index;type:varchar(64);not null" json:"conversationId"`
	UserID           string    `gorm:"type:varchar(64)" json:"userId"`
	Operation        string    `gorm:"type:varchar(32);not null" json:"operation"`
	Endpoint         string    `gorm:"type:varchar(64)" json:"endpoint"`
	Model            string    `gorm:"type:varchar(64);not null" json:"model"`
	Fallback         bool      `gorm:"not null;default:0" json:"fallback"`
	PromptTokens     int       `gorm:"not null;default:0" json:"promptTokens"`
	CompletionTokens int       `gorm:"not null;default:0" json:"completionTokens"`
	TotalTokens      int       `gorm:"not null;default:0" json:"totalTokens"`
	Success          bool      `gorm:"not null;default:1" json:"success"`
	LatencyMS        int64     `gorm:"not null;default:0" json:"latencyMs"`
	CreatedAt        time.Time `gorm:"index:idx_org_created" json:"createdAt"`
}

func (UsageRecord) TableName() string { return "usage_records" }
