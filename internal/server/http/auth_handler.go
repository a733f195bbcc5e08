package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	tokensvc "github.com/zacharykka/scene-pilot/internal/service/token"
	"github.com/zacharykka/scene-pilot/pkg/httpx"
)

// AuthHandler 处理令牌兑换相关请求。
type AuthHandler struct {
	service *tokensvc.Service
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(service *tokensvc.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterRoutes 注册认证相关路由。
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/token", h.Exchange)
	rg.POST("/refresh", h.Refresh)
}

type exchangeRequest struct {
	KeyID  string `json:"key_id" binding:"required"`
	APIKey string `json:"api_key" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Exchange 用 API Key 兑换访问令牌。
func (h *AuthHandler) Exchange(ctx *gin.Context) {
	var req exchangeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	tokens, err := h.service.Exchange(req.KeyID, req.APIKey)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondOK(ctx, gin.H{"tokens": tokens})
}

// Refresh 使用刷新令牌颁发新访问令牌。
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	var req refreshRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	tokens, err := h.service.Refresh(req.RefreshToken)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondOK(ctx, gin.H{"tokens": tokens})
}

func (h *AuthHandler) handleError(ctx *gin.Context, err error) {
	switch err {
	case tokensvc.ErrInvalidAPIKey:
		httpx.RespondError(ctx, http.StatusUnauthorized, "INVALID_API_KEY", err.Error(), nil)
	case tokensvc.ErrTokenInvalid:
		httpx.RespondError(ctx, http.StatusUnauthorized, "TOKEN_INVALID", err.Error(), nil)
	default:
		httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
	}
}
