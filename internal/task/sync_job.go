package task

import (
	"context"
	"errors"
	"time"

	"github.com/blues/tss/internal/config"
	"github.com/blues/tss/internal/logger"
	"github.com/blues/tss/internal/sync"
	"github.com/go-co-op/gocron/v2"
)

// SyncJob 周期性链上事件同步任务
type SyncJob struct {
	synchronizer *sync.Synchronizer
	config       *config.Config
}

// NewSyncJob 创建同步任务
func NewSyncJob(synchronizer *sync.Synchronizer, cfg *config.Config) *SyncJob {
	return &SyncJob{
		synchronizer: synchronizer,
		config:       cfg,
	}
}

// GetName 获取任务名称
func (j *SyncJob) GetName() string {
	return "chain_event_sync"
}

// GetSchedule 获取调度配置
func (j *SyncJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
//
// 重试节奏由调度器掌握：一轮失败后游标未动，下一个调度周期会重扫同一区间。
func (j *SyncJob) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := j.synchronizer.RunSync(ctx)
	if err != nil {
		if errors.Is(err, sync.ErrSyncBusy) {
			logger.Debug("Sync already running, skipping scheduled pass")
			return
		}
		logger.Error("Scheduled sync failed: %v", err)
		return
	}

	if result.Synced > 0 {
		logger.Info("Scheduled sync indexed %d new events (blocks %d-%d)",
			result.Synced, result.FromBlock, result.ToBlock)
	}
}
