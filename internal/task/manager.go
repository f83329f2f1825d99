package task

import (
	"github.com/blues/tss/internal/config"
	"github.com/blues/tss/internal/logger"
	"github.com/blues/tss/internal/sync"
	"github.com/go-co-op/gocron/v2"
)

// Manager 任务管理器
type Manager struct {
	scheduler    gocron.Scheduler
	synchronizer *sync.Synchronizer
	config       *config.Config
}

// NewManager 创建新的任务管理器
func NewManager(synchronizer *sync.Synchronizer, cfg *config.Config) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &Manager{
		scheduler:    s,
		synchronizer: synchronizer,
		config:       cfg,
	}
}

// Start 启动任务管理器
func Start(synchronizer *sync.Synchronizer, cfg *config.Config) *Manager {
	manager := NewManager(synchronizer, cfg)

	// 注册所有任务
	manager.RegisterJobs()

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() {
	m.RegisterSyncJob()
}

// RegisterSyncJob 注册链上事件同步任务
func (m *Manager) RegisterSyncJob() {
	job := NewSyncJob(m.synchronizer, m.config)

	// SingletonMode确保同一任务不会重叠执行，同步器内部的锁兜底手动触发
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
