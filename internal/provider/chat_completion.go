package provider

import (
	"encoding/json"
	"net/http"
)

// chatCompletionAdapter 覆盖 OpenAI 兼容的 chat/completions 接口族
// （openai、pplx、grok、deepseek 共用同一报文结构，仅端点与默认模型不同）。
type chatCompletionAdapter struct {
	tag      string
	endpoint string
	model    string
}

func newChatCompletionAdapter(tag, endpoint, model string) *chatCompletionAdapter {
	return &chatCompletionAdapter{tag: tag, endpoint: endpoint, model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int64 `json:"total_tokens"`
	} `json:"usage"`
}

func (a *chatCompletionAdapter) Tag() string {
	return a.tag
}

func (a *chatCompletionAdapter) BuildRequest(prompt string, credential string, opts Options) (*Request, error) {
	if credential == "" {
		return nil, wrapMissingCredential(a.tag)
	}

	model := opts.Model
	if model == "" {
		model = a.model
	}
	payload := chatCompletionRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+credential)
	header.Set("Content-Type", "application/json")

	return &Request{URL: a.endpoint, Header: header, Body: body}, nil
}

func (a *chatCompletionAdapter) ParseResponse(body []byte) (string, error) {
	var decoded chatCompletionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", wrapShape(a.tag, body)
	}
	if len(decoded.Choices) == 0 {
		return "", wrapShape(a.tag, body)
	}
	return decoded.Choices[0].Message.Content, nil
}
