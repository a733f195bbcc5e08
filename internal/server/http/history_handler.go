package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zacharykka/scene-pilot/internal/domain"
	"github.com/zacharykka/scene-pilot/internal/history"
	"github.com/zacharykka/scene-pilot/pkg/httpx"
)

// HistoryHandler 处理历史列表、收藏与删除。
type HistoryHandler struct {
	store *history.Store
}

// NewHistoryHandler 构造历史处理器。
func NewHistoryHandler(store *history.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// RegisterRoutes 注册历史相关路由。
func (h *HistoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/", h.List)
	rg.POST("/:id/favorite", h.UpdateFavorite)
	rg.DELETE("/:id", h.Delete)
}

// List 返回历史记录，收藏条目排在最前。
func (h *HistoryHandler) List(ctx *gin.Context) {
	filter := domain.HistoryFilter{
		UserID:    ctx.Query("user_id"),
		ProjectID: ctx.Query("project_id"),
		Limit:     parseQueryInt(ctx.Query("limit"), 100),
	}

	records := h.store.GetHistory(ctx.Request.Context(), filter)
	httpx.RespondOK(ctx, gin.H{"records": records})
}

type favoriteRequest struct {
	Favorite *bool `json:"favorite" binding:"required"`
}

// UpdateFavorite 切换收藏标记；持久化是异步尽力而为的。
func (h *HistoryHandler) UpdateFavorite(ctx *gin.Context) {
	var req favoriteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	h.store.UpdateFavorite(ctx.Param("id"), *req.Favorite)
	ctx.JSON(http.StatusAccepted, httpx.SuccessResponse{Data: gin.H{"id": ctx.Param("id"), "favorite": *req.Favorite}})
}

// Delete 从持久化后端删除记录；内存序列不随之调整。
func (h *HistoryHandler) Delete(ctx *gin.Context) {
	if err := h.store.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			httpx.RespondError(ctx, http.StatusNotFound, "RECORD_NOT_FOUND", err.Error(), nil)
			return
		}
		httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}
	httpx.RespondOK(ctx, gin.H{"id": ctx.Param("id")})
}

func parseQueryInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil && v > 0 {
		return v
	}
	return fallback
}
