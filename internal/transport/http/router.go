package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailsync/backend/internal/config"
	"mailsync/backend/internal/health"
	"mailsync/backend/internal/middleware"
	"mailsync/backend/internal/monitoring"
	"mailsync/backend/internal/storage"
	syncengine "mailsync/backend/internal/sync"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config        *config.Config
	Store         storage.Store
	Remote        ProfileFetcher
	SyncManager   *syncengine.Manager
	Metrics       *monitoring.Metrics
	HealthChecker *health.HealthChecker
	Logger        *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(10 * 1024 * 1024))

	if deps.Metrics != nil {
		mm := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)
		router.Use(mm.HTTPMetrics())
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	syncHandler := NewSyncHandler(deps.Store, deps.Remote, deps.SyncManager, deps.Metrics, deps.Logger)

	v1 := router.Group("/api/v1")
	{
		accounts := v1.Group("/accounts")
		{
			accounts.POST("/link", syncHandler.LinkAccount)
			accounts.GET("/:id/status", syncHandler.AccountStatus)
		}

		sync := v1.Group("/sync")
		{
			sync.POST("", syncHandler.TriggerInitialSync)
			sync.POST("/incremental", syncHandler.TriggerIncrementalSync)
		}
	}

	// 运维端点
	if deps.HealthChecker != nil {
		router.GET("/health/live", gin.WrapF(deps.HealthChecker.LiveEndpoint))
		router.GET("/health/ready", gin.WrapF(deps.HealthChecker.ReadyEndpoint))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, Response{
			Code: CodeNotFound,
			Msg:  "接口不存在",
		})
	})

	return router
}
