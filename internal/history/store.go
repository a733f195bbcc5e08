// Package history 维护会话内的提示词历史：
// 追加式内存序列加游标支撑低延迟的 undo/redo/go-back，
// 远端表仓储负责持久化；落库失败不阻断内存追加，离线仍可用。
package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zacharykka/scene-pilot/internal/domain"
	"github.com/zacharykka/scene-pilot/internal/jobqueue"
	"go.uber.org/zap"
)

// Store 聚合内存序列、游标与持久化仓储。
// 游标变更全部持锁进行，并发提交不会破坏 currentIndex。
type Store struct {
	mu      sync.Mutex
	records []*domain.PromptRecord
	cursor  int

	repo   domain.PromptRecordRepository
	queue  *jobqueue.Queue
	logger *zap.Logger
}

// NewStore 创建历史存储；cursor 初始为 -1 表示序列为空。
func NewStore(repo domain.PromptRecordRepository, queue *jobqueue.Queue, logger *zap.Logger) *Store {
	return &Store{
		cursor: -1,
		repo:   repo,
		queue:  queue,
		logger: logger,
	}
}

// LogPromptInput 描述一次交互入史所需的字段。
type LogPromptInput struct {
	UserID     string
	ProjectID  string
	Prompt     string
	Response   *string
	Provider   string
	Model      string
	TokenUsage *int64
	CostUSD    *float64
	LatencyMS  *int64
	PreviousID *string
	ErrorNote  *string
}

// LogPrompt 追加一条记录：undo 指针快照追加前的游标位置，
// 先尝试落库（失败仅记日志），再追加内存序列并把游标推到末位。
func (s *Store) LogPrompt(ctx context.Context, input LogPromptInput) *domain.PromptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &domain.PromptRecord{
		ID:         uuid.NewString(),
		UserID:     input.UserID,
		ProjectID:  input.ProjectID,
		Prompt:     input.Prompt,
		Response:   input.Response,
		Provider:   input.Provider,
		Model:      input.Model,
		TokenUsage: input.TokenUsage,
		CostUSD:    input.CostUSD,
		LatencyMS:  input.LatencyMS,
		PreviousID: input.PreviousID,
		ErrorNote:  input.ErrorNote,
		CreatedAt:  time.Now().UTC(),
	}
	if s.cursor >= 0 {
		pointer := s.cursor
		record.UndoPointer = &pointer
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Warn("persist prompt record failed, keeping in-memory copy",
			zap.String("record_id", record.ID),
			zap.Error(err),
		)
	}

	s.records = append(s.records, record)
	s.cursor = len(s.records) - 1
	return record
}

// GetHistory 从仓储读取历史并把收藏记录稳定排序到最前；
// 读取失败返回空序列，历史展示是尽力而为的。
func (s *Store) GetHistory(ctx context.Context, filter domain.HistoryFilter) []*domain.PromptRecord {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Warn("fetch prompt history failed", zap.Error(err))
		return []*domain.PromptRecord{}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Favorite && !records[j].Favorite
	})
	return records
}

// UpdateFavorite 通过任务队列异步更新收藏标记；失败由工作协程记日志。
func (s *Store) UpdateFavorite(recordID string, favorite bool) {
	s.queue.Enqueue(jobqueue.Job{
		Name: "history.update_favorite",
		Run: func(ctx context.Context) error {
			return s.repo.UpdateFavorite(ctx, recordID, favorite)
		},
	})

	s.mu.Lock()
	for _, record := range s.records {
		if record.ID == recordID {
			record.Favorite = favorite
			break
		}
	}
	s.mu.Unlock()
}

// Undo 把游标后移一位；已在起点返回 nil 且游标不动。
func (s *Store) Undo() *domain.PromptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor <= 0 {
		return nil
	}
	s.cursor--
	return s.records[s.cursor]
}

// Redo 把游标前移一位；已在末位返回 nil 且游标不动。
func (s *Store) Redo() *domain.PromptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor < 0 || s.cursor >= len(s.records)-1 {
		return nil
	}
	s.cursor++
	return s.records[s.cursor]
}

// GoBack 跳转到当前记录 undo 指针指向的位置并返回该记录；
// 指针缺失或越界返回 nil。这是跳转不是弹栈，序列不被截断。
func (s *Store) GoBack() *domain.PromptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor < 0 || s.cursor >= len(s.records) {
		return nil
	}
	pointer := s.records[s.cursor].UndoPointer
	if pointer == nil || *pointer < 0 || *pointer >= len(s.records) {
		return nil
	}
	s.cursor = *pointer
	return s.records[s.cursor]
}

// Delete 从持久化后端删除记录。内存序列不随之收缩：
// undo 指针是位置快照，删除后重排会使其全部失效。
// 需要内存视图同步的调用方应显式调用 Forget。
func (s *Store) Delete(ctx context.Context, recordID string) error {
	return s.repo.Delete(ctx, recordID)
}

// Forget 从内存序列中摘除指定记录并收敛游标。
// 指向被摘除区域的 undo 指针此后在 GoBack 中表现为越界，降级为 nil。
func (s *Store) Forget(recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, record := range s.records {
		if record.ID != recordID {
			continue
		}
		s.records = append(s.records[:i], s.records[i+1:]...)
		if s.cursor >= len(s.records) {
			s.cursor = len(s.records) - 1
		}
		return
	}
}

// CurrentIndex 返回游标位置，仅用于诊断与测试。
func (s *Store) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Current 返回游标指向的记录；序列为空返回 nil。
func (s *Store) Current() *domain.PromptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor < 0 || s.cursor >= len(s.records) {
		return nil
	}
	return s.records[s.cursor]
}

// Len 返回内存序列长度。
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
