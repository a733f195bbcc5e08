package gateway

import (
	"github.com/zacharykka/scene-pilot/internal/config"
	"github.com/zacharykka/scene-pilot/internal/provider"
)

// StaticConfigSource 基于加载后的配置实现 ConfigSource；请求期间只读。
type StaticConfigSource struct {
	cfg config.ProvidersConfig
}

// NewStaticConfigSource 构建只读配置源。
func NewStaticConfigSource(cfg config.ProvidersConfig) *StaticConfigSource {
	return &StaticConfigSource{cfg: cfg}
}

// ActiveProvider 返回当前生效的供应商标签。
func (s *StaticConfigSource) ActiveProvider() string {
	return s.cfg.Active
}

// Credential 返回标签对应的凭据；未配置返回空串。
func (s *StaticConfigSource) Credential(tag string) string {
	return s.cfg.Credentials[tag]
}

// Options 返回生成参数；模型留空让各适配器使用自身默认值。
func (s *StaticConfigSource) Options() provider.Options {
	return provider.Options{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}
}

var _ ConfigSource = (*StaticConfigSource)(nil)
