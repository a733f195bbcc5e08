package domain

import "time"

// PromptRecord 记录一次提示词交互：用户提交的文本与供应商返回的脚本。
// Response 为 nil 表示该次调用失败，失败同样入史以保证审计完整。
// UndoPointer 在创建时快照当时的历史游标位置，此后不再变更。
type PromptRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ProjectID   string    `json:"project_id"`
	Prompt      string    `json:"prompt"`
	Response    *string   `json:"response,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	Model       string    `json:"model,omitempty"`
	TokenUsage  *int64    `json:"token_usage,omitempty"`
	CostUSD     *float64  `json:"cost_usd,omitempty"`
	LatencyMS   *int64    `json:"latency_ms,omitempty"`
	Favorite    bool      `json:"favorite"`
	PreviousID  *string   `json:"previous_id,omitempty"`
	UndoPointer *int      `json:"undo_pointer,omitempty"`
	ErrorNote   *string   `json:"error_note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryFilter 约束历史查询的归属范围与数量上限。
type HistoryFilter struct {
	UserID    string
	ProjectID string
	Limit     int
}
