package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
)

// codeIndicators 命中即认为提示词偏代码生成。
// 规则刻意保持简单：对提示词文本的纯函数，方便独立测试。
var codeIndicators = regexp.MustCompile(`(?i)(python|script|code|function|def |class )`)

// ClassifyPrompt 判定提示词属于代码类还是通用类，决定路由到哪一个模型。
func ClassifyPrompt(prompt string) bool {
	return codeIndicators.MatchString(prompt)
}

// huggingFaceAdapter 对接 HuggingFace Inference 接口。
// 根据提示词内容在代码模型与通用模型之间二选一。
type huggingFaceAdapter struct {
	endpoint     string
	codeModel    string
	generalModel string
}

func newHuggingFaceAdapter(endpoint, codeModel, generalModel string) *huggingFaceAdapter {
	return &huggingFaceAdapter{
		endpoint:     endpoint,
		codeModel:    codeModel,
		generalModel: generalModel,
	}
}

type huggingFaceRequest struct {
	Inputs string `json:"inputs"`
}

type huggingFaceGenerated struct {
	GeneratedText *string `json:"generated_text"`
}

func (a *huggingFaceAdapter) Tag() string {
	return "huggingface"
}

// SelectModel 返回给定提示词将路由到的模型标识。
func (a *huggingFaceAdapter) SelectModel(prompt string) string {
	if ClassifyPrompt(prompt) {
		return a.codeModel
	}
	return a.generalModel
}

func (a *huggingFaceAdapter) BuildRequest(prompt string, credential string, opts Options) (*Request, error) {
	if credential == "" {
		return nil, wrapMissingCredential(a.Tag())
	}

	body, err := json.Marshal(huggingFaceRequest{Inputs: prompt})
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+credential)
	header.Set("Content-Type", "application/json")

	endpoint := fmt.Sprintf("%s/%s", a.endpoint, a.SelectModel(prompt))
	return &Request{URL: endpoint, Header: header, Body: body}, nil
}

// ParseResponse 兼容两种返回形态：对象或单元素数组。
func (a *huggingFaceAdapter) ParseResponse(body []byte) (string, error) {
	var asList []huggingFaceGenerated
	if err := json.Unmarshal(body, &asList); err == nil {
		if len(asList) == 0 || asList[0].GeneratedText == nil {
			return "", wrapShape(a.Tag(), body)
		}
		return *asList[0].GeneratedText, nil
	}

	var asObject huggingFaceGenerated
	if err := json.Unmarshal(body, &asObject); err != nil || asObject.GeneratedText == nil {
		return "", wrapShape(a.Tag(), body)
	}
	return *asObject.GeneratedText, nil
}
