package mongo

import (
	"time"
)

// TurnMessage 会话消息归档，供外部协作方回放会话
type TurnMessage struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	ConversationID string    `bson:"conversation_id" json:"conversationId"`
	OrganizationID string    `bson:"organization_id" json:"organizationId"`
	Role           string    `bson:"role" json:"role"` // user / assistant
	Content        string    `bson:"content" json:"content"`
	Intent         string    `bson:"intent,omitempty" json:"intent,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
}
