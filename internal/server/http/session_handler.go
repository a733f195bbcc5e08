package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zacharykka/scene-pilot/internal/gateway"
	"github.com/zacharykka/scene-pilot/internal/history"
	"github.com/zacharykka/scene-pilot/internal/provider"
	"github.com/zacharykka/scene-pilot/internal/safety"
	"github.com/zacharykka/scene-pilot/internal/session"
	"github.com/zacharykka/scene-pilot/pkg/httpx"
)

// SessionHandler 处理会话提交、状态查询与历史游标导航。
type SessionHandler struct {
	controller *session.Controller
	status     *session.StatusCell
	history    *history.Store
	gateway    *gateway.Gateway
}

// NewSessionHandler 构造会话处理器。
func NewSessionHandler(controller *session.Controller, status *session.StatusCell, hist *history.Store, gw *gateway.Gateway) *SessionHandler {
	return &SessionHandler{
		controller: controller,
		status:     status,
		history:    hist,
		gateway:    gw,
	}
}

// RegisterRoutes 注册会话相关路由。
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/prompts", h.Submit)
	rg.GET("/status", h.Status)
	rg.POST("/undo", h.Undo)
	rg.POST("/redo", h.Redo)
	rg.POST("/back", h.GoBack)
}

type submitRequest struct {
	Prompt string `json:"prompt"`
}

// Submit 接受一次提示词提交；处理是异步的，结果通过状态接口与历史观察。
func (h *SessionHandler) Submit(ctx *gin.Context) {
	var req submitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	if err := h.controller.Submit(ctx, req.Prompt); err != nil {
		if errors.Is(err, session.ErrEmptyPrompt) {
			httpx.RespondError(ctx, http.StatusBadRequest, "EMPTY_PROMPT", err.Error(), nil)
			return
		}
		httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}

	ctx.JSON(http.StatusAccepted, httpx.SuccessResponse{Data: gin.H{
		"state": h.controller.State().String(),
	}})
}

// Status 返回当前状态文本与状态机阶段，供轮询方刷新展示。
func (h *SessionHandler) Status(ctx *gin.Context) {
	httpx.RespondOK(ctx, gin.H{
		"state":  h.controller.State().String(),
		"status": h.status.Status(),
	})
}

// Undo 把历史游标后移一位。
func (h *SessionHandler) Undo(ctx *gin.Context) {
	record := h.history.Undo()
	if record == nil {
		httpx.RespondOK(ctx, gin.H{"record": nil, "current_index": h.history.CurrentIndex()})
		return
	}
	httpx.RespondOK(ctx, gin.H{"record": record, "current_index": h.history.CurrentIndex()})
}

// Redo 把历史游标前移一位。
func (h *SessionHandler) Redo(ctx *gin.Context) {
	record := h.history.Redo()
	if record == nil {
		httpx.RespondOK(ctx, gin.H{"record": nil, "current_index": h.history.CurrentIndex()})
		return
	}
	httpx.RespondOK(ctx, gin.H{"record": record, "current_index": h.history.CurrentIndex()})
}

// GoBack 跳转到当前记录 undo 指针指向的位置。
func (h *SessionHandler) GoBack(ctx *gin.Context) {
	record := h.history.GoBack()
	if record == nil {
		httpx.RespondOK(ctx, gin.H{"record": nil, "current_index": h.history.CurrentIndex()})
		return
	}
	httpx.RespondOK(ctx, gin.H{"record": record, "current_index": h.history.CurrentIndex()})
}

// ---- 同步生成接口 ----

// ScriptHandler 暴露 SendPrompt 的同步形态，供非交互调用方直接取脚本。
type ScriptHandler struct {
	gateway *gateway.Gateway
}

// NewScriptHandler 构造脚本生成处理器。
func NewScriptHandler(gw *gateway.Gateway) *ScriptHandler {
	return &ScriptHandler{gateway: gw}
}

// RegisterRoutes 注册脚本生成路由。
func (h *ScriptHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/generate", h.Generate)
}

type generateRequest struct {
	Prompt string `json:"prompt" binding:"required,min=1"`
}

// Generate 同步调用网关并返回脚本文本；阻塞到供应商返回或超时。
func (h *ScriptHandler) Generate(ctx *gin.Context) {
	var req generateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	script, err := h.gateway.SendPrompt(ctx.Request.Context(), req.Prompt)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondOK(ctx, gin.H{"script": script})
}

func (h *ScriptHandler) handleError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, gateway.ErrConfiguration):
		httpx.RespondError(ctx, http.StatusUnprocessableEntity, "PROVIDER_NOT_CONFIGURED", err.Error(), nil)
	case errors.Is(err, safety.ErrUnsafeScript):
		httpx.RespondError(ctx, http.StatusUnprocessableEntity, "UNSAFE_SCRIPT", err.Error(), nil)
	case errors.Is(err, provider.ErrResponseShape):
		httpx.RespondError(ctx, http.StatusBadGateway, "RESPONSE_SHAPE", err.Error(), nil)
	case errors.Is(err, gateway.ErrTransport):
		httpx.RespondError(ctx, http.StatusBadGateway, "TRANSPORT_ERROR", err.Error(), nil)
	default:
		httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
	}
}
