package sse

import (
	"encoding/json"
	"strings"
	"sync"
)

// Event SSE 事件，Type 为空时只输出 data 行
type Event struct {
	Type string
	Data any
}

// Format 格式化为 SSE 消息
func (e Event) Format() (string, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if e.Type != "" {
		b.WriteString("event: ")
		b.WriteString(e.Type)
		b.WriteByte('\n')
	}
	b.WriteString("data: ")
	b.Write(data)
	b.WriteString("\n\n")
	return b.String(), nil
}

// Stopper 可以被外部终止的流
type Stopper interface {
	Stop()
}

// Hub 正在转发的流，按流 ID 索引
type Hub struct {
	mu      sync.RWMutex
	streams map[string]Stopper
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{streams: make(map[string]Stopper)}
}

// Register 注册流，ID 已存在时返回 false
func (h *Hub) Register(id string, s Stopper) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.streams[id]; ok {
		return false
	}
	h.streams[id] = s
	return true
}

// Unregister 注销流
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	delete(h.streams, id)
	h.mu.Unlock()
}

// Stop 终止指定流，流不存在时返回 false
func (h *Hub) Stop(id string) bool {
	h.mu.RLock()
	s, ok := h.streams[id]
	h.mu.RUnlock()
	if ok {
		s.Stop()
	}
	return ok
}

// Count 正在转发的流数量
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams)
}

// StopAll 终止所有流，返回终止的数量
func (h *Hub) StopAll() int {
	h.mu.RLock()
	all := make([]Stopper, 0, len(h.streams))
	for _, s := range h.streams {
		all = append(all, s)
	}
	h.mu.RUnlock()
	for _, s := range all {
		s.Stop()
	}
	return len(all)
}
