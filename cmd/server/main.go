package main

// @title K9 Aliases API
// @version 1.0.0
// @description 邮箱别名管理后端 API 文档
// @contact.name API Support
// @contact.email support@example.com
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 使用格式：Bearer {token}

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

	_ "k9aliases/backend/docs" // Swagger docs
	"k9aliases/backend/internal/auth"
	"k9aliases/backend/internal/config"
	"k9aliases/backend/internal/health"
	"k9aliases/backend/internal/logger"
	"k9aliases/backend/internal/middleware"
	"k9aliases/backend/internal/monitoring"
	"k9aliases/backend/internal/service"
	"k9aliases/backend/internal/storage"
	"k9aliases/backend/internal/storage/hybrid"
	"k9aliases/backend/internal/storage/memory"
	"k9aliases/backend/internal/storage/postgres"
	"k9aliases/backend/internal/storage/redis"
	httptransport "k9aliases/backend/internal/transport/http"
	"k9aliases/backend/internal/websocket"
)

const (
	// poolStatsInterval 连接池与系统指标采集间隔
	poolStatsInterval = 15 * time.Second

	alertInterval      = time.Minute
	alertMemoryMB      = 512
	alertLoginFailures = 50
)

// backends 持久化存储及其可选的连接池客户端
type backends struct {
	store   storage.Store
	limiter storage.RateLimitRepository
	pg      *postgres.Client
	redis   *redis.Client
}

// close 依次关闭存储与连接池
func (b *backends) close(log *zap.Logger) {
	if err := b.store.Close(); err != nil {
		log.Warn("store close warning", zap.Error(err))
	}
	if b.pg != nil {
		b.pg.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

// main 启动别名管理 HTTP 服务。
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

	log, err := logger.FromConfig(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()
	log.Info("starting k9aliases server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	metrics := monitoring.NewMetrics()

	b, err := initializeStorage(cfg, log, metrics)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer b.close(log)

	// 健康检查
	healthChecker := health.NewHealthChecker(b.store, log)
	if b.pg != nil {
		healthChecker.AddReadinessCheck("postgres", b.pg.Check(3*time.Second))
	}
	if b.redis != nil {
		rc := b.redis
		healthChecker.AddReadinessCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return rc.Ping(ctx)
		})
	}

	// 告警规则
	alerts := monitoring.NewAlertManager(log)
	alerts.AddReceiver(monitoring.NewLogAlertReceiver(log))
	alerts.AddRule(monitoring.StoreUnavailableRule(b.store.Health))
	alerts.AddRule(monitoring.HighMemoryUsageRule(alertMemoryMB))
	alerts.AddRule(monitoring.LoginFailureSpikeRule(metrics, alertLoginFailures))

	// 初始化服务层
	limits := service.LimitsFromConfig(cfg.Quota)
	sessions := auth.NewSessionManager(b.store, cfg.Session.Secret, cfg.Session.TTL, log)
	authService := auth.NewService(b.store, sessions, b.limiter, log, metrics)
	aliasService := service.NewAliasService(b.store, limits, log, metrics)
	domainService := service.NewDomainService(b.store, limits, log, metrics)
	usernameService := service.NewUsernameService(b.store, limits, log, metrics)
	settingsService := service.NewSettingsService(b.store, log, metrics)
	dashboardService := service.NewDashboardService(b.store, limits, log, metrics)

	log.Info("quota limits",
		zap.Int("active_aliases", limits.ActiveAliases),
		zap.Int("domains", limits.Domains),
		zap.Int("usernames", limits.Usernames),
	)

	// 变更通知推送给用户已连接的客户端
	wsHub := websocket.NewHub(cfg.CORS.AllowedOrigins, log, metrics)
	authService.SetNotifier(wsHub)
	aliasService.SetNotifier(wsHub)
	domainService.SetNotifier(wsHub)
	usernameService.SetNotifier(wsHub)
	settingsService.SetNotifier(wsHub)

	loginLimiter := middleware.NewIPRateLimiter("login", cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst, metrics)

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:           cfg,
		AuthService:      authService,
		AliasService:     aliasService,
		DomainService:    domainService,
		UsernameService:  usernameService,
		SettingsService:  settingsService,
		DashboardService: dashboardService,
		LoginLimiter:     loginLimiter,
		WebSocketHub:     wsHub,
		Health:           healthChecker,
		Metrics:          metrics,
		Logger:           log,
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

	// WebSocket Hub goroutine
	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		return nil
	})

	// 定时清理过期会话与空闲限流器
	group.Go(func() error {
		ticker := time.NewTicker(cfg.Session.CleanupInterval)
		defer ticker.Stop()

		log.Info("starting expired session cleanup task", zap.Duration("interval", cfg.Session.CleanupInterval))

		for {
			select {
			case <-groupCtx.Done():
				log.Info("session cleanup task stopped")
				return nil
			case <-ticker.C:
				count, err := sessions.PurgeExpired(groupCtx)
				if err != nil {
					log.Error("failed to purge expired sessions", zap.Error(err))
					metrics.RecordError("storage", "session_janitor")
				} else if count > 0 {
					metrics.RecordSessionsExpired(count)
					log.Info("expired sessions purged", zap.Int64("count", count))
				}

				if removed := loginLimiter.Cleanup(); removed > 0 {
					log.Debug("idle login limiters removed", zap.Int("count", removed))
				}
			}
		}
	})

	// 连接池与系统指标采集
	group.Go(func() error {
		ticker := time.NewTicker(poolStatsInterval)
		defer ticker.Stop()

		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				metrics.UpdateSystemMetrics()
				if b.pg != nil {
					metrics.UpdateDatabaseConnections(int(b.pg.Stats().TotalConns()))
				}
				if b.redis != nil {
					metrics.UpdateRedisConnections(b.redis.TotalConns())
				}
			}
		}
	})

	// 告警评估
	group.Go(func() error {
		alerts.Run(groupCtx, alertInterval)
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("servers stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// initializeStorage 根据配置选择存储：
// 未配置数据库时使用内存存储；配置 Redis 时在数据库之上叠加会话缓存与共享限流计数。
func initializeStorage(cfg *config.Config, log *zap.Logger, metrics *monitoring.Metrics) (*backends, error) {
	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		store := memory.NewStore()
		log.Info("using memory storage (development mode)")
		return &backends{store: store, limiter: store}, nil
	}

	if cfg.Database.Type != "postgres" {
		return nil, fmt.Errorf("unsupported database type %q", cfg.Database.Type)
	}

	log.Info("initializing database storage",
		zap.String("database_type", cfg.Database.Type),
		zap.String("redis_address", cfg.Redis.Address),
	)

	pgStore, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres store: %w", err)
	}

	pgClient, err := postgres.New(&cfg.Database, log)
	if err != nil {
		_ = pgStore.Close()
		return nil, err
	}

	b := &backends{store: pgStore, pg: pgClient}
	if cfg.Redis.Address == "" {
		// 单实例部署：登录失败计数保存在进程内
		b.limiter = memory.NewStore()
		return b, nil
	}

	redisClient, err := redis.New(&cfg.Redis, log)
	if err != nil {
		b.close(log)
		return nil, err
	}
	b.redis = redisClient

	store := hybrid.NewStore(pgStore, redis.NewCache(redisClient.Client()), cfg.Redis.SessionCacheTTL, log, metrics)
	b.store = store
	b.limiter = store

	log.Info("database storage initialized successfully",
		zap.String("database_type", cfg.Database.Type),
		zap.Bool("redis_cache", true),
	)
	return b, nil
}
