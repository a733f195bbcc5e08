// Package gateway 实现“提交提示词、取回脚本”的端到端阻塞调用：
// 供应商解析、请求构造、HTTP 调用、响应解包、安全过滤。
// 它不执行脚本也不写历史，这些是会话控制器的职责。
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zacharykka/scene-pilot/internal/provider"
	"github.com/zacharykka/scene-pilot/internal/safety"
	"go.uber.org/zap"
)

var (
	// ErrConfiguration 表示供应商未注册或缺少凭据，需要用户调整配置。
	ErrConfiguration = errors.New("gateway: configuration error")
	// ErrTransport 统一表示网络失败、超时与非 2xx 状态；底层原因随错误链携带。
	ErrTransport = errors.New("gateway: transport error")
)

// ConfigSource 是外部配置协作方的最小契约（宿主偏好、配置文件皆可）。
type ConfigSource interface {
	ActiveProvider() string
	Credential(tag string) string
	Options() provider.Options
}

// Gateway 持有适配器注册表与共享 HTTP 客户端。
type Gateway struct {
	source   ConfigSource
	registry *provider.Registry
	filter   *safety.Filter
	client   *http.Client
	logger   *zap.Logger
}

// New 构建网关；timeout 为单次供应商调用的硬超时。
func New(source ConfigSource, registry *provider.Registry, filter *safety.Filter, timeout time.Duration, logger *zap.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gateway{
		source:   source,
		registry: registry,
		filter:   filter,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// SendPrompt 发送提示词并返回通过安全过滤的脚本文本。
// 配置缺失在发起任何网络调用之前返回。
func (g *Gateway) SendPrompt(ctx context.Context, prompt string) (string, error) {
	tag := g.source.ActiveProvider()

	adapter, err := g.registry.Lookup(tag)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	req, err := adapter.BuildRequest(prompt, g.source.Credential(tag), g.source.Options())
	if err != nil {
		if errors.Is(err, provider.ErrMissingCredential) {
			return "", fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		return "", err
	}

	body, err := g.do(ctx, tag, req)
	if err != nil {
		return "", err
	}

	script, err := adapter.ParseResponse(body)
	if err != nil {
		g.logger.Warn("provider response shape mismatch",
			zap.String("provider", tag),
			zap.Error(err),
		)
		return "", err
	}

	if err := g.filter.Check(script); err != nil {
		g.logger.Warn("script rejected by safety filter", zap.String("provider", tag))
		return "", err
	}

	return script, nil
}

// do 执行一次 HTTP 调用；任何传输层异常统一折叠为 ErrTransport。
func (g *Gateway) do(ctx context.Context, tag string, req *provider.Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %v", ErrTransport, tag, err)
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: call %s: %v", ErrTransport, tag, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", ErrTransport, tag, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrTransport, tag, resp.Status)
	}
	return body, nil
}
