package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"github.com/zacharykka/scene-pilot/internal/app"
	"github.com/zacharykka/scene-pilot/internal/config"
	"github.com/zacharykka/scene-pilot/internal/infra"
	"github.com/zacharykka/scene-pilot/internal/middleware"
	httpserver "github.com/zacharykka/scene-pilot/internal/server/http"
	tokensvc "github.com/zacharykka/scene-pilot/internal/service/token"
	"github.com/zacharykka/scene-pilot/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigDir, opts.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, cleanup, err := infra.Initialize(ctx, cfg, infra.Options{}, log)
	if err != nil {
		log.Fatal("初始化依赖失败", zap.Error(err))
	}
	defer func() {
		if err := cleanup(context.Background()); err != nil {
			log.Error("关闭依赖失败", zap.Error(err))
		}
	}()

	engine := httpserver.NewEngine(cfg, log, httpserver.RouterOptions{
		Middlewares: []gin.HandlerFunc{
			middleware.RequestLogger(log),
		},
		RateLimit: buildRateLimit(cfg, container, log),
		HealthDeps: &httpserver.HealthDependencies{
			DB:    container.DB,
			Redis: container.Redis,
		},
		AuthHandler:    httpserver.NewAuthHandler(tokensvc.NewService(cfg.Auth)),
		SessionHandler: httpserver.NewSessionHandler(container.Session, container.Status, container.History, container.Gateway),
		HistoryHandler: httpserver.NewHistoryHandler(container.History),
		ScriptHandler:  httpserver.NewScriptHandler(container.Gateway),
	})

	application := app.New(cfg, log, engine)

	if err := application.Run(ctx); err != nil {
		log.Fatal("服务运行异常", zap.Error(err))
	}
}

// buildRateLimit 构建限流中间件：Redis 可用走集中式存储，否则退化为内存。
func buildRateLimit(cfg *config.Config, container *infra.Container, log *zap.Logger) gin.HandlerFunc {
	if !cfg.Server.RateLimit.Enabled {
		return nil
	}

	rate := limiter.Rate{
		Period: cfg.Server.RateLimit.Period,
		Limit:  cfg.Server.RateLimit.Limit,
	}

	if container.Redis != nil {
		store, err := redisstore.NewStore(container.Redis)
		if err == nil {
			return middleware.RateLimit(limiter.New(store, rate), middleware.KeyByUserOrIP())
		}
		log.Warn("redis rate limit store unavailable, falling back to memory", zap.Error(err))
	}
	return middleware.RateLimit(limiter.New(memorystore.NewStore(), rate), middleware.KeyByUserOrIP())
}

// options 控制命令行参数。
type options struct {
	ConfigDir string
	Env       string
}

func parseFlags() options {
	var opts options
	pflag.StringVar(&opts.ConfigDir, "config-dir", "./config", "配置文件目录")
	pflag.StringVar(&opts.Env, "env", "", "强制指定运行环境，覆盖 SCENE_PILOT_ENV")
	pflag.Parse()
	return opts
}
