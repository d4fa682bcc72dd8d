package repository

import (
	"Leadnest/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrgUsageTotal 组织维度的 token 汇总
type OrgUsageTotal struct {
	OrganizationID string
	TotalTokens    int64
	CallCount      int64
}

type UsageRecordRepo interface {
	Save(ctx context.Context, rec *model.UsageRecord) error
	GetConversationTotalTokens(ctx context.Context, convID string) (int64, error)
	GetOrgTotalsBetween(ctx context.Context, from, to time.Time) ([]*OrgUsageTotal, error)
}

type usageRecordRepoImpl struct {
	db *gorm.DB
}

func NewUsageRecordRepo(db *gorm.DB) UsageRecordRepo {
	return &usageRecordRepoImpl{db: db}
}

// Save 追加写入。消费端可能重投，按主键幂等忽略重复记录
func (r *usageRecordRepoImpl) Save(ctx context.Context, rec *model.UsageRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(rec).Error
}

// GetConversationTotalTokens 会话维度 token 总量，用作与厂商账单的对账基准
func (r *usageRecordRepoImpl) GetConversationTotalTokens(ctx context.Context, convID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.UsageRecord{}).
		Where("conversation_id = ?", convID).
		Select("COALESCE(SUM(total_tokens), 0)").
		Scan(&total).Error
	return total, err
}

// GetOrgTotalsBetween 统计时间窗内各组织的调用量与 token 总量
func (r *usageRecordRepoImpl) GetOrgTotalsBetween(ctx context.Context, from, to time.Time) ([]*OrgUsageTotal, error) {
	totals := make([]*OrgUsageTotal, 0)
	err := r.db.WithContext(ctx).Model(&model.UsageRecord{}).
		Select("organization_id, SUM(total_tokens) AS total_tokens, COUNT(*) AS call_count").
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("organization_id").
		Order("total_tokens DESC").
		Find(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}
