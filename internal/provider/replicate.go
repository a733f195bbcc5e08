package provider

import (
	"encoding/json"
	"net/http"
)

// replicateAdapter 对接 Replicate Predictions 接口。
type replicateAdapter struct {
	endpoint string
}

func newReplicateAdapter(endpoint string) *replicateAdapter {
	return &replicateAdapter{endpoint: endpoint}
}

type replicateRequest struct {
	Input replicateInput `json:"input"`
}

type replicateInput struct {
	Prompt string `json:"prompt"`
}

type replicateResponse struct {
	Output *string `json:"output"`
}

func (a *replicateAdapter) Tag() string {
	return "replicate"
}

func (a *replicateAdapter) BuildRequest(prompt string, credential string, opts Options) (*Request, error) {
	if credential == "" {
		return nil, wrapMissingCredential(a.Tag())
	}

	body, err := json.Marshal(replicateRequest{Input: replicateInput{Prompt: prompt}})
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+credential)
	header.Set("Content-Type", "application/json")

	return &Request{URL: a.endpoint, Header: header, Body: body}, nil
}

func (a *replicateAdapter) ParseResponse(body []byte) (string, error) {
	var decoded replicateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", wrapShape(a.Tag(), body)
	}
	if decoded.Output == nil {
		return "", wrapShape(a.Tag(), body)
	}
	return *decoded.Output, nil
}
