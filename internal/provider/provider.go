package provider

import (
	"net/http"

	"github.com/zacharykka/scene-pilot/internal/config"
)

// Request 描述一次对外 HTTP 调用：纯数据，不含任何 I/O。
type Request struct {
	URL    string
	Header http.Header
	Body   []byte
}

// Options 描述生成参数，由网关在请求时传入。
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Adapter 定义单个供应商的请求构造与响应解析契约。
// 实现必须是纯映射：一次请求对应一次解析，无重试、无缓存。
type Adapter interface {
	Tag() string
	BuildRequest(prompt string, credential string, opts Options) (*Request, error)
	ParseResponse(body []byte) (string, error)
}

// Registry 按标签集中管理已注册的适配器。
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry 根据配置构建内置供应商适配器集合。
func NewRegistry(cfg config.ProvidersConfig) *Registry {
	r := &Registry{adapters: map[string]Adapter{}}

	endpoint := func(tag, fallback string) string {
		if override, ok := cfg.Endpoints[tag]; ok && override != "" {
			return override
		}
		return fallback
	}
	model := func(tag, fallback string) string {
		if m, ok := cfg.Models[tag]; ok && m != "" {
			return m
		}
		return fallback
	}

	r.Register(newScriptAdapter("local", endpoint("local", "http://localhost:8000/generate"), false))
	r.Register(newScriptAdapter("cloud", endpoint("cloud", "https://api.scene-pilot.dev/generate"), true))
	r.Register(newChatCompletionAdapter("openai", endpoint("openai", "https://api.openai.com/v1/chat/completions"), model("openai", "gpt-4o")))
	r.Register(newChatCompletionAdapter("pplx", endpoint("pplx", "https://api.perplexity.ai/chat/completions"), model("pplx", "pplx-70b-chat")))
	r.Register(newChatCompletionAdapter("grok", endpoint("grok", "https://api.grok.x.ai/v1/chat/completions"), model("grok", "grok-1")))
	r.Register(newChatCompletionAdapter("deepseek", endpoint("deepseek", "https://api.deepseek.com/v1/chat/completions"), model("deepseek", "deepseek-coder")))
	r.Register(newAnthropicAdapter(endpoint("anthropic", "https://api.anthropic.com/v1/messages"), model("anthropic", "claude-3-opus-20240229")))
	r.Register(newGeminiAdapter(endpoint("gemini", "https://generativelanguage.googleapis.com/v1beta/models"), model("gemini", "gemini-pro")))
	r.Register(newHuggingFaceAdapter(endpoint("huggingface", "https://api-inference.huggingface.co/models"), cfg.HuggingFace.CodeModel, cfg.HuggingFace.GeneralModel))
	r.Register(newReplicateAdapter(endpoint("replicate", "https://api.replicate.com/v1/predictions")))

	return r
}

// Register 注册或覆盖指定标签的适配器。
func (r *Registry) Register(adapter Adapter) {
	r.adapters[adapter.Tag()] = adapter
}

// Lookup 返回标签对应的适配器；未注册返回 ErrUnknownProvider。
func (r *Registry) Lookup(tag string) (Adapter, error) {
	adapter, ok := r.adapters[tag]
	if !ok {
		return nil, wrapUnknown(tag)
	}
	return adapter, nil
}

// Tags 返回全部已注册标签，便于诊断输出。
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.adapters))
	for tag := range r.adapters {
		tags = append(tags, tag)
	}
	return tags
}
