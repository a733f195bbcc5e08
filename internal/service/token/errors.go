package token

import "errors"

var (
	// ErrInvalidAPIKey 表示 Key 标识或明文不匹配任何已配置条目。
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrTokenInvalid 刷新令牌无效。
	ErrTokenInvalid = errors.New("token invalid")
)
