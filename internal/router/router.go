package router

import (
	"github.com/blues/tss/internal/config"
	"github.com/blues/tss/internal/handler"
	"github.com/blues/tss/internal/logic"
	"github.com/blues/tss/internal/sync"
	"github.com/gin-gonic/gin"
)

func Setup(
	analytics *logic.AnalyticsLogic,
	shop *logic.ShopLogic,
	events *logic.EventLogic,
	synchronizer *sync.Synchronizer,
	cfg *config.Config,
) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "token-shop-service",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		analyticsHandler := handler.NewAnalyticsHandler(analytics, shop)
		ag := v1.Group("/analytics")
		{
			ag.GET("/summary", analyticsHandler.GetSummary)
			ag.GET("/per-asset", analyticsHandler.GetPerAsset)
			ag.GET("/activity", analyticsHandler.GetActivity)
		}

		shopHandler := handler.NewShopHandler(shop)
		sg := v1.Group("/shop")
		{
			sg.GET("", shopHandler.GetShopInfo)
			sg.GET("/liquidity", shopHandler.GetLiquidity)
		}

		users := v1.Group("/users")
		{
			users.GET("/:address", analyticsHandler.GetUserHistory)
			users.GET("/:address/balance", shopHandler.GetUserBalance)
		}

		syncHandler := handler.NewSyncHandler(synchronizer, events)
		v1.POST("/sync", syncHandler.TriggerSync)
		v1.GET("/sync/status", syncHandler.GetSyncStatus)
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
