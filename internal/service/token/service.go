package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zacharykka/scene-pilot/internal/config"
	authutil "github.com/zacharykka/scene-pilot/pkg/auth"
)

const issuer = "scene-pilot"

// Service 把配置中的 API Key 兑换为 JWT，供后续接口调用鉴权。
type Service struct {
	cfg   config.AuthConfig
	nowFn func() time.Time
}

// Tokens 表示访问令牌与刷新令牌。
type Tokens struct {
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

// NewService 创建令牌服务。
func NewService(cfg config.AuthConfig) *Service {
	return &Service{cfg: cfg, nowFn: time.Now}
}

// WithClock 允许注入自定义时间函数，便于测试。
func (s *Service) WithClock(now func() time.Time) {
	if now != nil {
		s.nowFn = now
	}
}

// Exchange 校验 API Key 并签发令牌；keyID 标识调用方，也写入 user_id 声明。
func (s *Service) Exchange(keyID, apiKey string) (*Tokens, error) {
	keyID = strings.TrimSpace(keyID)
	if keyID == "" || apiKey == "" {
		return nil, ErrInvalidAPIKey
	}

	for _, candidate := range s.cfg.APIKeys {
		if candidate.ID != keyID {
			continue
		}
		if !authutil.VerifyAPIKey(candidate.Hash, apiKey) {
			return nil, ErrInvalidAPIKey
		}
		return s.issueTokens(keyID, normalizedRole(candidate.Role))
	}
	return nil, ErrInvalidAPIKey
}

// Refresh 根据刷新令牌生成新令牌。
func (s *Service) Refresh(refreshToken string) (*Tokens, error) {
	claims, err := authutil.ParseToken(refreshToken, s.cfg.RefreshTokenSecret)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != "refresh" {
		return nil, ErrTokenInvalid
	}
	return s.issueTokens(claims.UserID, claims.Role)
}

func (s *Service) issueTokens(keyID, role string) (*Tokens, error) {
	now := s.nowFn()
	accessTTL := s.cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := s.cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}

	registered := jwt.RegisteredClaims{
		Subject:  keyID,
		Issuer:   issuer,
		Audience: []string{issuer},
	}

	accessToken, err := authutil.GenerateToken(s.cfg.AccessTokenSecret, accessTTL, authutil.Claims{
		UserID:           keyID,
		Role:             role,
		TokenType:        "access",
		RegisteredClaims: registered,
	})
	if err != nil {
		return nil, err
	}

	refreshToken, err := authutil.GenerateToken(s.cfg.RefreshTokenSecret, refreshTTL, authutil.Claims{
		UserID:           keyID,
		Role:             role,
		TokenType:        "refresh",
		RegisteredClaims: registered,
	})
	if err != nil {
		return nil, err
	}

	return &Tokens{
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  now.Add(accessTTL),
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: now.Add(refreshTTL),
	}, nil
}

func normalizedRole(role string) string {
	value := strings.TrimSpace(strings.ToLower(role))
	switch value {
	case "admin", "editor", "viewer":
		return value
	default:
		return "viewer"
	}
}
