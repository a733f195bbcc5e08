package domain

import "context"

// PromptRecordRepository 定义提示词历史的远端表存取接口。
type PromptRecordRepository interface {
	Create(ctx context.Context, record *PromptRecord) error
	List(ctx context.Context, filter HistoryFilter) ([]*PromptRecord, error)
	UpdateFavorite(ctx context.Context, recordID string, favorite bool) error
	Delete(ctx context.Context, recordID string) error
}

// Repositories 聚合全部仓储接口，便于依赖注入。
type Repositories struct {
	PromptRecords PromptRecordRepository
}
