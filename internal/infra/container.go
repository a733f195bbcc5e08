package infra

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"github.com/zacharykka/scene-pilot/internal/config"
	"github.com/zacharykka/scene-pilot/internal/domain"
	"github.com/zacharykka/scene-pilot/internal/gateway"
	"github.com/zacharykka/scene-pilot/internal/history"
	"github.com/zacharykka/scene-pilot/internal/infra/bootstrap"
	"github.com/zacharykka/scene-pilot/internal/infra/cache"
	"github.com/zacharykka/scene-pilot/internal/infra/database"
	"github.com/zacharykka/scene-pilot/internal/infra/repository"
	"github.com/zacharykka/scene-pilot/internal/jobqueue"
	"github.com/zacharykka/scene-pilot/internal/provider"
	"github.com/zacharykka/scene-pilot/internal/safety"
	"github.com/zacharykka/scene-pilot/internal/session"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Container 持有应用依赖资源，负责集中构建与关闭。
type Container struct {
	DB      *sql.DB
	Redis   *redis.Client
	Repos   *domain.Repositories
	Queue   *jobqueue.Queue
	Gateway *gateway.Gateway
	History *history.Store
	Status  *session.StatusCell
	Session *session.Controller
}

// Options 允许注入外部协作方（脚本执行汇、状态汇）。
type Options struct {
	Script session.ScriptFunc
}

// Initialize 构建各类依赖并返回关闭函数。
func Initialize(ctx context.Context, cfg *config.Config, opts Options, logger *zap.Logger) (*Container, func(context.Context) error, error) {
	container := &Container{}

	db, err := database.New(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	container.DB = db

	if err := bootstrap.EnsureSchema(ctx, db, cfg.Database.MigrationsDir, logger); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	if cfg.Redis.Enabled {
		redisClient, err := cache.New(ctx, cfg.Redis, logger)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		container.Redis = redisClient
	}

	dialect := database.NewDialect(cfg.Database.Driver)
	repos := repository.NewSQLRepositories(db, dialect)
	repos.PromptRecords = cache.WrapPromptRecords(repos.PromptRecords, container.Redis, logger)
	container.Repos = repos

	container.Queue = jobqueue.New(cfg.Queue.PollInterval, logger)
	container.Queue.Start()

	registry := provider.NewRegistry(cfg.Providers)
	filter := safety.NewFilter(cfg.Safety.Denylist)
	source := gateway.NewStaticConfigSource(cfg.Providers)
	container.Gateway = gateway.New(source, registry, filter, cfg.Providers.Timeout, logger)

	container.History = history.NewStore(repos.PromptRecords, container.Queue, logger)

	container.Status = session.NewStatusCell()
	container.Session = session.NewController(container.Gateway, container.History, container.Queue, session.Options{
		UserID:    cfg.Session.UserID,
		ProjectID: cfg.Session.ProjectID,
		Provider:  cfg.Providers.Active,
		Script:    opts.Script,
		Status:    container.Status,
	}, logger)

	cleanup := func(ctx context.Context) error {
		var errs error
		if container.Queue != nil {
			container.Queue.Stop()
		}
		if container.DB != nil {
			if err := container.DB.Close(); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		if container.Redis != nil {
			if err := container.Redis.Close(); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		return errs
	}

	return container, cleanup, nil
}
