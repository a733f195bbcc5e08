package session

import "sync/atomic"

// StatusCell 是原子状态文本格：后台协程写、界面轮询读，
// 取代宿主里裸共享字段的跨线程写法。
type StatusCell struct {
	value atomic.Value
}

// NewStatusCell 创建空状态格。
func NewStatusCell() *StatusCell {
	cell := &StatusCell{}
	cell.value.Store("")
	return cell
}

// SetStatus 原子写入状态文本。
func (c *StatusCell) SetStatus(message string) {
	c.value.Store(message)
}

// Status 原子读取状态文本。
func (c *StatusCell) Status() string {
	v, _ := c.value.Load().(string)
	return v
}

var _ StatusSink = (*StatusCell)(nil)
