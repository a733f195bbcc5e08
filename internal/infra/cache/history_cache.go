package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zacharykka/scene-pilot/internal/domain"
	"go.uber.org/zap"
)

const (
	historyVersionKey = "scene-pilot:history:ver"
	historyCacheTTL   = 30 * time.Second
)

// promptRecordCache 在仓储之上加一层短 TTL 的 Redis 读缓存。
// 任何写操作通过递增版本号使旧键自然过期；缓存故障一律降级直读。
type promptRecordCache struct {
	inner  domain.PromptRecordRepository
	client *redis.Client
	logger *zap.Logger
}

// WrapPromptRecords 为仓储加缓存装饰；client 为 nil 时原样返回。
func WrapPromptRecords(inner domain.PromptRecordRepository, client *redis.Client, logger *zap.Logger) domain.PromptRecordRepository {
	if client == nil {
		return inner
	}
	return &promptRecordCache{inner: inner, client: client, logger: logger}
}

func (c *promptRecordCache) Create(ctx context.Context, record *domain.PromptRecord) error {
	if err := c.inner.Create(ctx, record); err != nil {
		return err
	}
	c.bumpVersion(ctx)
	return nil
}

func (c *promptRecordCache) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.PromptRecord, error) {
	key := c.listKey(ctx, filter)
	if key != "" {
		if cached, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var records []*domain.PromptRecord
			if err := json.Unmarshal(cached, &records); err == nil {
				return records, nil
			}
		}
	}

	records, err := c.inner.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if payload, err := json.Marshal(records); err == nil {
			if err := c.client.Set(ctx, key, payload, historyCacheTTL).Err(); err != nil {
				c.logger.Debug("history cache set failed", zap.Error(err))
			}
		}
	}
	return records, nil
}

func (c *promptRecordCache) UpdateFavorite(ctx context.Context, recordID string, favorite bool) error {
	if err := c.inner.UpdateFavorite(ctx, recordID, favorite); err != nil {
		return err
	}
	c.bumpVersion(ctx)
	return nil
}

func (c *promptRecordCache) Delete(ctx context.Context, recordID string) error {
	if err := c.inner.Delete(ctx, recordID); err != nil {
		return err
	}
	c.bumpVersion(ctx)
	return nil
}

// listKey 把版本号编进键名，写操作后旧键不再被引用。
func (c *promptRecordCache) listKey(ctx context.Context, filter domain.HistoryFilter) string {
	version, err := c.client.Get(ctx, historyVersionKey).Int64()
	if err != nil && err != redis.Nil {
		return ""
	}
	return fmt.Sprintf("scene-pilot:history:%d:%s:%s:%d", version, filter.UserID, filter.ProjectID, filter.Limit)
}

func (c *promptRecordCache) bumpVersion(ctx context.Context) {
	if err := c.client.Incr(ctx, historyVersionKey).Err(); err != nil {
		c.logger.Debug("history cache version bump failed", zap.Error(err))
	}
}
