package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// geminiAdapter 对接 Google Generative Language 接口。
// 凭据通过 URL 查询参数传递，这是该接口的原生鉴权方式。
type geminiAdapter struct {
	endpoint string
	model    string
}

func newGeminiAdapter(endpoint, model string) *geminiAdapter {
	return &geminiAdapter{endpoint: endpoint, model: model}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (a *geminiAdapter) Tag() string {
	return "gemini"
}

func (a *geminiAdapter) BuildRequest(prompt string, credential string, opts Options) (*Request, error) {
	if credential == "" {
		return nil, wrapMissingCredential(a.Tag())
	}

	model := opts.Model
	if model == "" {
		model = a.model
	}
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", a.endpoint, model, url.QueryEscape(credential))
	return &Request{URL: endpoint, Header: header, Body: body}, nil
}

func (a *geminiAdapter) ParseResponse(body []byte) (string, error) {
	var decoded geminiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", wrapShape(a.Tag(), body)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", wrapShape(a.Tag(), body)
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}
