package job

import (
	"Leadnest/internal/pkg/logger"
	"Leadnest/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// UsageRollupJob 每日统计前一天各组织的 token 消耗，输出到日志供账单侧采集
type UsageRollupJob struct {
	usageRepo repository.UsageRecordRepo
}

func NewUsageRollupJob(usageRepo repository.UsageRecordRepo) *UsageRollupJob {
	return &UsageRollupJob{usageRepo: usageRepo}
}

func (s *UsageRollupJob) Run() {
	traceID := "job-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	now := time.Now()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from := to.AddDate(0, 0, -1)

	totals, err := s.usageRepo.GetOrgTotalsBetween(ctx, from, to)
	if err != nil {
		log.ErrorContext(ctx, "用量日汇总统计失败", "err", err)
		return
	}

	for _, t := range totals {
		log.InfoContext(ctx, "USAGE_DAILY_ROLLUP",
			"date", from.Format("2006-01-02"),
			"organization_id", t.OrganizationID,
			"total_tokens", t.TotalTokens,
			"call_count", t.CallCount,
		)
	}
	log.InfoContext(ctx, "用量日汇总完成", "date", from.Format("2006-01-02"), "orgs", len(totals))
}
