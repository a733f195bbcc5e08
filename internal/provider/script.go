package provider

import (
	"encoding/json"
	"net/http"
)

// scriptAdapter 覆盖直接返回 {"script": "..."} 的轻量端点：
// local 对应本地推理服务，cloud 对应托管网关（需要凭据）。
type scriptAdapter struct {
	tag          string
	endpoint     string
	requiresCred bool
}

func newScriptAdapter(tag, endpoint string, requiresCred bool) *scriptAdapter {
	return &scriptAdapter{tag: tag, endpoint: endpoint, requiresCred: requiresCred}
}

type scriptRequest struct {
	Prompt string `json:"prompt"`
}

type scriptResponse struct {
	Script *string `json:"script"`
}

func (a *scriptAdapter) Tag() string {
	return a.tag
}

func (a *scriptAdapter) BuildRequest(prompt string, credential string, opts Options) (*Request, error) {
	if a.requiresCred && credential == "" {
		return nil, wrapMissingCredential(a.tag)
	}

	body, err := json.Marshal(scriptRequest{Prompt: prompt})
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	if credential != "" {
		header.Set("Authorization", "Bearer "+credential)
	}

	return &Request{URL: a.endpoint, Header: header, Body: body}, nil
}

func (a *scriptAdapter) ParseResponse(body []byte) (string, error) {
	var decoded scriptResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", wrapShape(a.tag, body)
	}
	if decoded.Script == nil {
		return "", wrapShape(a.tag, body)
	}
	return *decoded.Script, nil
}
