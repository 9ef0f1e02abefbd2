package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"k9aliases/backend/internal/auth"
	"k9aliases/backend/internal/config"
	"k9aliases/backend/internal/health"
	"k9aliases/backend/internal/middleware"
	"k9aliases/backend/internal/monitoring"
	"k9aliases/backend/internal/service"
	"k9aliases/backend/internal/websocket"
)

// Handler 聚合需要登录的业务处理逻辑。
type Handler struct {
	aliases   *service.AliasService
	domains   *service.DomainService
	usernames *service.UsernameService
	settings  *service.SettingsService
	dashboard *service.DashboardService
}

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config           *config.Config
	AuthService      *auth.Service
	AliasService     *service.AliasService
	DomainService    *service.DomainService
	UsernameService  *service.UsernameService
	SettingsService  *service.SettingsService
	DashboardService *service.DashboardService
	LoginLimiter     *middleware.IPRateLimiter // 为空时不限流
	WebSocketHub     *websocket.Hub            // 为空时不提供 /v1/events
	Health           *health.HealthChecker     // 为空时只提供简单的 /health
	Metrics          *monitoring.Metrics
	Logger           *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()

	monitor := middleware.NewMonitoringMiddleware(deps.Metrics, log)
	router.Use(monitor.PanicRecovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(monitor.HTTPMetrics())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 允许所有来源时不能携带凭证
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := &Handler{
		aliases:   deps.AliasService,
		domains:   deps.DomainService,
		usernames: deps.UsernameService,
		settings:  deps.SettingsService,
		dashboard: deps.DashboardService,
	}
	authHandler := NewAuthHandler(deps.AuthService, deps.Config.Session, log)
	sessionAuth := middleware.NewSessionAuth(deps.AuthService, deps.Config.Session.CookieName, log)

	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查与指标
	registerOps(router, deps)

	loginLimit := func(c *gin.Context) { c.Next() }
	if deps.LoginLimiter != nil {
		loginLimit = deps.LoginLimiter.Middleware()
	}

	v1 := router.Group("/v1")
	v1.Use(middleware.ValidateContentType("application/json"))
	{
		// ========== Auth Routes ==========
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/signup", loginLimit, authHandler.Signup)
			authRoutes.POST("/login", loginLimit, authHandler.Login)
			authRoutes.POST("/logout", sessionAuth.RequireSession(), authHandler.Logout)
			authRoutes.GET("/me", sessionAuth.RequireSession(), authHandler.Me)
		}

		// 以下路由全部需要登录
		secured := v1.Group("")
		secured.Use(sessionAuth.RequireSession())

		// ========== Alias Routes ==========
		aliasRoutes := secured.Group("/aliases")
		{
			aliasRoutes.GET("", handler.listAliases)
			aliasRoutes.POST("", handler.createAlias)
			aliasRoutes.GET("/search", handler.searchAliases)
			aliasRoutes.GET("/counts", handler.aliasCounts)
			aliasRoutes.POST("/generate", handler.generateAliases)
			aliasRoutes.PATCH("/:id/status", handler.setAliasStatus)
			aliasRoutes.DELETE("/:id", handler.deleteAlias)

			aliasRoutes.POST("/bulk/activate", handler.bulk(handler.aliases.ActivateInactive))
			aliasRoutes.POST("/bulk/deactivate", handler.bulk(handler.aliases.DeactivateActive))
			aliasRoutes.POST("/bulk/delete-active", handler.bulk(handler.aliases.DeleteActive))
			aliasRoutes.POST("/bulk/delete-inactive", handler.bulk(handler.aliases.DeleteInactive))
		}

		// ========== Deleted Alias Routes ==========
		deletedRoutes := secured.Group("/deleted-aliases")
		{
			deletedRoutes.GET("", handler.listDeletedAliases)
			deletedRoutes.POST("/:id/restore", handler.restoreAlias)
			deletedRoutes.DELETE("/:id", handler.permanentlyDeleteAlias)
			deletedRoutes.POST("/bulk/restore", handler.bulk(handler.aliases.RestoreDeleted))
			deletedRoutes.POST("/bulk/delete", handler.bulk(handler.aliases.PermanentlyDeleteDeleted))
		}

		// ========== Domain Routes ==========
		domainRoutes := secured.Group("/domains")
		{
			domainRoutes.GET("", handler.listDomains)
			domainRoutes.POST("", handler.createDomain)
			domainRoutes.PUT("/:id", handler.updateDomain)
			domainRoutes.PATCH("/:id/status", handler.setDomainStatus)
			domainRoutes.DELETE("/:id", handler.deleteDomain)
		}

		// ========== Username Routes ==========
		usernameRoutes := secured.Group("/usernames")
		{
			usernameRoutes.GET("", handler.listUsernames)
			usernameRoutes.POST("", handler.createUsername)
			usernameRoutes.PUT("/:id", handler.updateUsername)
			usernameRoutes.PATCH("/:id/status", handler.setUsernameStatus)
			usernameRoutes.DELETE("/:id", handler.deleteUsername)
		}

		// ========== Profile Routes ==========
		profileRoutes := secured.Group("/profile")
		{
			profileRoutes.GET("", handler.getProfile)
			profileRoutes.PUT("", respondUpdate(handler.updateProfile))
			profileRoutes.PUT("/theme", respondUpdate(handler.updateTheme))
			profileRoutes.PUT("/password", authHandler.ChangePassword)
			profileRoutes.DELETE("", authHandler.DeleteAccount)
		}

		// ========== Settings Routes ==========
		settingsRoutes := secured.Group("/settings")
		{
			settingsRoutes.GET("", handler.getSettings)
			settingsRoutes.PUT("/preferences", respondUpdate(handler.updatePreferences))
			settingsRoutes.PUT("/notifications", respondUpdate(handler.updateNotifications))
			settingsRoutes.PUT("/alias-rules", respondUpdate(handler.updateAliasRules))
			settingsRoutes.GET("/sessions", authHandler.ListSessions)
			settingsRoutes.POST("/sessions/logout-others", authHandler.LogoutOthers)
		}

		// ========== Dashboard Routes ==========
		secured.GET("/applications", handler.listApplications)
		secured.GET("/alias-form", handler.aliasForm)

		// ========== WebSocket Routes ==========
		if deps.WebSocketHub != nil {
			secured.GET("/events", websocket.HandleWebSocket(deps.WebSocketHub))
		}
	}

	return router
}

// registerOps 注册健康检查、指标等运维端点
func registerOps(router *gin.Engine, deps RouterDependencies) {
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	if deps.Health == nil {
		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		return
	}

	router.GET("/health", func(c *gin.Context) {
		results := deps.Health.CheckHealth()
		status := http.StatusOK
		if !health.Healthy(results) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, results)
	})
	router.GET("/health/live", gin.WrapF(deps.Health.LiveHandler()))
	router.GET("/health/ready", gin.WrapF(deps.Health.ReadyHandler()))
}
