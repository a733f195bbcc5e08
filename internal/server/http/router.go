package http

import (
	"database/sql"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/zacharykka/scene-pilot/internal/config"
	"github.com/zacharykka/scene-pilot/internal/infra/cache"
	"github.com/zacharykka/scene-pilot/internal/infra/database"
	"github.com/zacharykka/scene-pilot/internal/middleware"
	"go.uber.org/zap"
)

// HealthDependencies 汇总健康检查所需的依赖。
type HealthDependencies struct {
	DB    *sql.DB
	Redis *redis.Client
}

// RouterOptions 用于自定义路由行为，例如注入中间件与处理器。
type RouterOptions struct {
	Middlewares     []gin.HandlerFunc
	RateLimit       gin.HandlerFunc
	HealthHandler   gin.HandlerFunc
	HealthDeps      *HealthDependencies
	AuthHandler     *AuthHandler
	SessionHandler  *SessionHandler
	HistoryHandler  *HistoryHandler
	ScriptHandler   *ScriptHandler
}

// NewEngine 根据环境配置初始化 Gin 引擎，并注册基础路由。
func NewEngine(cfg *config.Config, logger *zap.Logger, opts RouterOptions) *gin.Engine {
	ginMode := gin.DebugMode
	if cfg.App.Env == "production" {
		ginMode = gin.ReleaseMode
	}
	gin.SetMode(ginMode)

	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.SecurityHeaders(cfg.Server.SecurityHeaders))
	engine.Use(middleware.LimitRequestBody(cfg.Server.MaxRequestBody))
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: cfg.Server.CORS.AllowCredentials,
	}))

	for _, mw := range opts.Middlewares {
		if mw != nil {
			engine.Use(mw)
		}
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler(cfg, opts.HealthDeps)
	}

	engine.GET("/healthz", healthHandler)

	api := engine.Group("/api/v1")
	if opts.AuthHandler != nil {
		authGroup := api.Group("/auth")
		opts.AuthHandler.RegisterRoutes(authGroup)
	}

	guarded := api.Group("")
	if len(cfg.Auth.APIKeys) > 0 {
		guarded.Use(middleware.AuthGuard(cfg.Auth.AccessTokenSecret))
	}

	if opts.SessionHandler != nil {
		sessionGroup := guarded.Group("/session")
		if opts.RateLimit != nil {
			sessionGroup.Use(opts.RateLimit)
		}
		opts.SessionHandler.RegisterRoutes(sessionGroup)
	}
	if opts.HistoryHandler != nil {
		historyGroup := guarded.Group("/history")
		opts.HistoryHandler.RegisterRoutes(historyGroup)
	}
	if opts.ScriptHandler != nil {
		scriptGroup := guarded.Group("/scripts")
		if opts.RateLimit != nil {
			scriptGroup.Use(opts.RateLimit)
		}
		opts.ScriptHandler.RegisterRoutes(scriptGroup)
	}

	logger.Info("http router ready", zap.String("env", cfg.App.Env))

	return engine
}

func defaultHealthHandler(cfg *config.Config, deps *HealthDependencies) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		httpStatus := http.StatusOK
		result := gin.H{
			"status":  "ok",
			"service": cfg.App.Name,
			"env":     cfg.App.Env,
		}

		if deps != nil {
			dependencies := gin.H{}
			if deps.DB != nil {
				if err := database.Health(ctx.Request.Context(), deps.DB); err != nil {
					httpStatus = http.StatusServiceUnavailable
					result["status"] = "degraded"
					dependencies["database"] = gin.H{
						"status": "error",
						"error":  err.Error(),
					}
				} else {
					dependencies["database"] = gin.H{"status": "ok"}
				}
			} else {
				dependencies["database"] = gin.H{"status": "missing"}
			}

			if deps.Redis != nil {
				if err := cache.Health(ctx.Request.Context(), deps.Redis); err != nil {
					httpStatus = http.StatusServiceUnavailable
					result["status"] = "degraded"
					dependencies["redis"] = gin.H{
						"status": "error",
						"error":  err.Error(),
					}
				} else {
					dependencies["redis"] = gin.H{"status": "ok"}
				}
			} else {
				dependencies["redis"] = gin.H{"status": "disabled"}
			}

			result["dependencies"] = dependencies
		}

		ctx.JSON(httpStatus, result)
	}
}
