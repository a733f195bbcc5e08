// Package session 实现单次提交周期的状态机：
// Idle → Sending → {Success, Failed} → Idle。
// 网关调用在提交方之外的后台协程执行，失败永不终结会话。
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/zacharykka/scene-pilot/internal/gateway"
	"github.com/zacharykka/scene-pilot/internal/history"
	"github.com/zacharykka/scene-pilot/internal/jobqueue"
	"github.com/zacharykka/scene-pilot/internal/safety"
	"go.uber.org/zap"
)

// ErrEmptyPrompt 表示提示词为空，在任何网络调用之前拒绝。
var ErrEmptyPrompt = errors.New("session: empty prompt")

// State 表示控制器当前所处的阶段。
type State int32

const (
	StateIdle State = iota
	StateSending
	StateSuccess
	StateFailed
)

// String 输出状态名，供状态接口与日志使用。
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StatusSink 接收面向用户的状态短文本（§外部接口：UI 状态汇）。
type StatusSink interface {
	SetStatus(message string)
}

// ScriptFunc 是脚本执行汇：由宿主注入，控制器只负责入队。
type ScriptFunc func(ctx context.Context, script string) error

// Controller 驱动一次提交周期，并把结果写入历史与状态汇。
type Controller struct {
	gateway *gateway.Gateway
	history *history.Store
	queue   *jobqueue.Queue
	script  ScriptFunc
	status  StatusSink
	logger  *zap.Logger

	userID    string
	projectID string
	provider  string

	state atomic.Int32
}

// Options 描述控制器的归属与协作方。
type Options struct {
	UserID    string
	ProjectID string
	Provider  string
	Script    ScriptFunc
	Status    StatusSink
}

// NewController 构建会话控制器；Status 为 nil 时退化为内部原子状态格。
func NewController(gw *gateway.Gateway, hist *history.Store, queue *jobqueue.Queue, opts Options, logger *zap.Logger) *Controller {
	status := opts.Status
	if status == nil {
		status = NewStatusCell()
	}
	script := opts.Script
	if script == nil {
		script = func(ctx context.Context, scriptText string) error {
			logger.Info("script execution sink not wired, dropping script",
				zap.Int("script_len", len(scriptText)))
			return nil
		}
	}
	c := &Controller{
		gateway:   gw,
		history:   hist,
		queue:     queue,
		script:    script,
		status:    status,
		logger:    logger,
		userID:    opts.UserID,
		projectID: opts.ProjectID,
		provider:  opts.Provider,
	}
	c.state.Store(int32(StateIdle))
	return c
}

// State 返回当前状态，供轮询方使用。
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Submit 接受一次提示词提交。空提示词同步拒绝；
// 其余流程在独立协程完成（每次提交一个协程，参照宿主行为）。
func (c *Controller) Submit(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}

	c.state.Store(int32(StateSending))
	c.status.SetStatus("Sending prompt...")

	// 提交方（HTTP 请求）返回后调用方上下文即取消，后台调用需要与之解耦
	go c.run(context.WithoutCancel(ctx), prompt)
	return nil
}

// run 执行网关调用并根据结果完成状态迁移；总是回到 Idle。
func (c *Controller) run(ctx context.Context, prompt string) {
	started := time.Now()
	script, err := c.gateway.SendPrompt(ctx, prompt)
	latency := time.Since(started).Milliseconds()

	if err != nil {
		c.state.Store(int32(StateFailed))
		note := err.Error()
		c.history.LogPrompt(ctx, history.LogPromptInput{
			UserID:    c.userID,
			ProjectID: c.projectID,
			Prompt:    prompt,
			Provider:  c.provider,
			LatencyMS: &latency,
			ErrorNote: &note,
		})
		c.status.SetStatus(statusForError(err))
		c.logger.Warn("prompt submission failed", zap.Error(err))
		c.state.Store(int32(StateIdle))
		return
	}

	c.state.Store(int32(StateSuccess))
	c.queue.Enqueue(jobqueue.Job{
		Name: "session.execute_script",
		Run: func(jobCtx context.Context) error {
			return c.script(jobCtx, script)
		},
	})
	c.history.LogPrompt(ctx, history.LogPromptInput{
		UserID:    c.userID,
		ProjectID: c.projectID,
		Prompt:    prompt,
		Response:  &script,
		Provider:  c.provider,
		LatencyMS: &latency,
	})
	c.status.SetStatus("Success!")
	c.state.Store(int32(StateIdle))
}

// statusForError 把类型化错误折叠为面向用户的一行状态文本。
func statusForError(err error) string {
	switch {
	case errors.Is(err, gateway.ErrConfiguration):
		return fmt.Sprintf("Provider not configured: %v", err)
	case errors.Is(err, gateway.ErrTransport):
		return "Failed to fetch script."
	case errors.Is(err, safety.ErrUnsafeScript):
		return "Unsafe script rejected."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
