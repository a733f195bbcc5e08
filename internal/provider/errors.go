package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownProvider 表示该标签没有注册适配器。
	ErrUnknownProvider = errors.New("provider: unknown provider tag")
	// ErrMissingCredential 表示该供应商要求凭据但未配置。
	ErrMissingCredential = errors.New("provider: missing credential")
	// ErrResponseShape 表示响应缺少约定字段，通常意味着上游契约变化。
	ErrResponseShape = errors.New("provider: unexpected response shape")
)

func wrapUnknown(tag string) error {
	return fmt.Errorf("%w: %s", ErrUnknownProvider, tag)
}

func wrapMissingCredential(tag string) error {
	return fmt.Errorf("%w: %s", ErrMissingCredential, tag)
}

// wrapShape 保留原始响应体片段，便于排查供应商契约漂移。
func wrapShape(tag string, body []byte) error {
	const maxSnippet = 256
	snippet := string(body)
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}
	return fmt.Errorf("%w: %s body=%q", ErrResponseShape, tag, snippet)
}
