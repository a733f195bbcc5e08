package provider

import (
	"encoding/json"
	"net/http"
)

const anthropicVersion = "2023-06-01"

// anthropicAdapter 对接 Anthropic Messages 接口。
type anthropicAdapter struct {
	endpoint string
	model    string
}

func newAnthropicAdapter(endpoint, model string) *anthropicAdapter {
	return &anthropicAdapter{endpoint: endpoint, model: model}
}

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (a *anthropicAdapter) Tag() string {
	return "anthropic"
}

func (a *anthropicAdapter) BuildRequest(prompt string, credential string, opts Options) (*Request, error) {
	if credential == "" {
		return nil, wrapMissingCredential(a.Tag())
	}

	model := opts.Model
	if model == "" {
		model = a.model
	}
	body, err := json.Marshal(anthropicRequest{
		Model:     model,
		MaxTokens: opts.MaxTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("x-api-key", credential)
	header.Set("anthropic-version", anthropicVersion)
	header.Set("Content-Type", "application/json")

	return &Request{URL: a.endpoint, Header: header, Body: body}, nil
}

func (a *anthropicAdapter) ParseResponse(body []byte) (string, error) {
	var decoded anthropicResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", wrapShape(a.Tag(), body)
	}
	if len(decoded.Content) == 0 {
		return "", wrapShape(a.Tag(), body)
	}
	return decoded.Content[0].Text, nil
}
