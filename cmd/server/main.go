package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mailsync/backend/internal/config"
	"mailsync/backend/internal/health"
	"mailsync/backend/internal/logger"
	"mailsync/backend/internal/monitoring"
	"mailsync/backend/internal/provider"
	"mailsync/backend/internal/storage"
	"mailsync/backend/internal/storage/memory"
	"mailsync/backend/internal/storage/postgres"
	syncengine "mailsync/backend/internal/sync"
	httptransport "mailsync/backend/internal/transport/http"
)

// main 启动邮件同步服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     "",
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting mailsync server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.String("provider_base_url", cfg.Provider.BaseURL),
	)

	// 初始化存储层
	var store storage.Store

	// 根据配置选择存储类型
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = initializeDatabaseStorage(cfg, log)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		// 使用内存存储（开发环境）
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()

	// 初始化监控系统
	metrics := monitoring.NewMetrics()

	// 初始化健康检查
	healthChecker := health.NewHealthChecker(store, log)

	// 初始化远端客户端与同步引擎
	remote := provider.NewClient(cfg.Provider, log)
	engine := syncengine.NewEngine(store, remote, cfg, metrics, log)
	manager := syncengine.NewManager(engine, log)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:        cfg,
		Store:         store,
		Remote:        remote,
		SyncManager:   manager,
		Metrics:       metrics,
		HealthChecker: healthChecker,
		Logger:        log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 后台增量同步 goroutine
	if cfg.Sync.IncrementalInterval > 0 {
		group.Go(func() error {
			ticker := time.NewTicker(cfg.Sync.IncrementalInterval)
			defer ticker.Stop()

			log.Info("starting background incremental sync task",
				zap.Duration("interval", cfg.Sync.IncrementalInterval),
			)

			for {
				select {
				case <-groupCtx.Done():
					log.Info("background sync task stopped")
					return nil
				case <-ticker.C:
					manager.SyncAll(groupCtx)
				}
			}
		})
	}

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", zap.Error(err))
	}
	log.Info("server stopped")
}

// initializeDatabaseStorage 初始化数据库存储
func initializeDatabaseStorage(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	log.Info("initializing database storage",
		zap.String("database_type", cfg.Database.Type),
	)

	switch cfg.Database.Type {
	case "mysql":
		return postgres.NewMySQLStore(cfg.Database.DSN)
	default:
		return postgres.NewStore(cfg.Database.DSN)
	}
}
