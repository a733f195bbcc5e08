// Package safety 对供应商返回的脚本做提交前过滤。
//
// 过滤基于子串拒绝清单，不做语法解析，也不是沙箱：
// 拼接绕过之类的手法挡不住，它只是一道浅层防护，
// 真正的执行隔离由宿主侧的执行环境负责。
package safety

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsafeScript 表示脚本命中拒绝清单，禁止进入执行队列。
var ErrUnsafeScript = errors.New("safety: unsafe script rejected")

// Filter 持有只读的拒绝清单。
type Filter struct {
	denylist []string
}

// NewFilter 构建过滤器；清单在构建后不再变更。
func NewFilter(denylist []string) *Filter {
	cleaned := make([]string, 0, len(denylist))
	for _, needle := range denylist {
		if needle != "" {
			cleaned = append(cleaned, needle)
		}
	}
	return &Filter{denylist: cleaned}
}

// Check 对脚本文本做子串匹配，命中任一条目即拒绝。
func (f *Filter) Check(script string) error {
	for _, needle := range f.denylist {
		if strings.Contains(script, needle) {
			return fmt.Errorf("%w: matched %q", ErrUnsafeScript, needle)
		}
	}
	return nil
}

// Denylist 返回清单副本，供诊断接口展示。
func (f *Filter) Denylist() []string {
	out := make([]string, len(f.denylist))
	copy(out, f.denylist)
	return out
}
