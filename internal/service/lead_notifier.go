package service

import (
	"Leadnest/internal/api/config"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// QualifiedLead 推送给外部线索系统的载荷
type QualifiedLead struct {
	ConversationID string    `json:"conversation_id"`
	OrganizationID string    `json:"organization_id"`
	AgentID        string    `json:"agent_id"`
	UserID         string    `json:"user_id"`
	Budget         string    `json:"budget"`
	Authority      string    `json:"authority"`
	Need           string    `json:"need"`
	Timeline       string    `json:"timeline"`
	QualifiedAt    time.Time `json:"qualified_at"`
}

// LeadNotifier BANT 采集完成后向线索系统推送合格线索。
// 推送失败不回滚会话状态，由线索侧对账补偿
type LeadNotifier interface {
	NotifyQualified(ctx context.Context, lead *QualifiedLead) error
}

type webhookNotifierImpl struct {
	client *resty.Client
	url    string
}

func NewLeadNotifier(cfg config.LeadConfig) LeadNotifier {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2)

	return &webhookNotifierImpl{
		client: client,
		url:    cfg.WebhookURL,
	}
}

func (s *webhookNotifierImpl) NotifyQualified(ctx context.Context, lead *QualifiedLead) error {
	if s.url == "" {
		return nil
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(lead).
		Post(s.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("lead webhook status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
