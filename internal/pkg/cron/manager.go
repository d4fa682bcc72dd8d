package cron

import (
	"Leadnest/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine        *cron.Cron
	dedupSweepJob *job.DedupSweepJob
	usageRollup   *job.UsageRollupJob
}

func NewCronManager(dedupSweepJob *job.DedupSweepJob, usageRollup *job.UsageRollupJob) *Manager {
	return &Manager{
		engine:        cron.New(cron.WithSeconds()),
		dedupSweepJob: dedupSweepJob,
		usageRollup:   usageRollup,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob("@hourly", s.dedupSweepJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("@daily", s.usageRollup); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	s.engine.Stop()
}
