package main

import (
	"context"
	"time"

	"github.com/blues/tss/internal/asset"
	"github.com/blues/tss/internal/config"
	"github.com/blues/tss/internal/database"
	"github.com/blues/tss/internal/ethereum"
	"github.com/blues/tss/internal/logger"
	"github.com/blues/tss/internal/logic"
	"github.com/blues/tss/internal/router"
	"github.com/blues/tss/internal/sync"
	"github.com/blues/tss/internal/task"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	if err := logger.Setup(cfg.Log); err != nil {
		logger.Fatal("Failed to setup logger: %v", err)
	}

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化以太坊客户端
	ethClient, err := ethereum.Init(cfg.Shop)
	if err != nil {
		logger.Fatal("Failed to initialize ethereum client: %v", err)
	}

	// 组装核心组件
	resolver := asset.NewResolver(ethClient)
	eventLogic := logic.NewEventLogic(db)
	analyticsLogic := logic.NewAnalyticsLogic(eventLogic)
	shopLogic := logic.NewShopLogic(ethClient, resolver, eventLogic)
	synchronizer := sync.NewSynchronizer(ethClient, resolver, eventLogic, cfg.Shop.StartBlock)

	// 启动时先跑一轮同步，失败不阻塞启动（下一个调度周期会重试同一区间）
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if result, err := synchronizer.RunSync(ctx); err != nil {
			logger.Error("Initial sync failed: %v", err)
		} else {
			logger.Info("Initial sync indexed %d events (blocks %d-%d)",
				result.Synced, result.FromBlock, result.ToBlock)
		}
	}()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(analyticsLogic, shopLogic, eventLogic, synchronizer, cfg)

	// 启动定时任务
	manager := task.Start(synchronizer, cfg)
	defer manager.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
