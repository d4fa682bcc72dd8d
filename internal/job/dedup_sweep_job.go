package job

import (
	"Leadnest/internal/pkg/bant"
	"Leadnest/internal/pkg/logger"
	"context"
	log "log/slog"

	"github.com/google/uuid"
)

// DedupSweepJob 周期清理提取去重缓存的过期项，防止长生命周期进程内存缓慢增长
type DedupSweepJob struct {
	cache *bant.DedupCache
}

func NewDedupSweepJob(cache *bant.DedupCache) *DedupSweepJob {
	return &DedupSweepJob{cache: cache}
}

func (s *DedupSweepJob) Run() {
	traceID := "job-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	removed := s.cache.Sweep()
	log.InfoContext(ctx, "提取去重缓存清理完成", "removed", removed, "remaining", s.cache.Len())
}
