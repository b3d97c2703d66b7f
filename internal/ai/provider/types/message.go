package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message 聊天消息
//
// Parts 非 nil 时 content 序列化为内容块数组，否则序列化为纯文本字符串。
type Message struct {
	Role      string
	Content   string
	Parts     []ContentPart
	Name      string
	Reasoning string // 仅出现在响应中
}

// UserMessage 创建纯文本用户消息
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// SystemMessage 创建系统消息
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// NormalizedParts 把消息内容规范成内容块列表（纯文本包装为一个 text 块）
func (m Message) NormalizedParts() []ContentPart {
	if m.Parts != nil {
		out := make([]ContentPart, len(m.Parts))
		copy(out, m.Parts)
		return out
	}
	if m.Content != "" {
		return []ContentPart{TextPart{Text: m.Content}}
	}
	return []ContentPart{}
}

// Text 拼接消息中的所有文本
func (m Message) Text() string {
	if m.Parts == nil {
		return m.Content
	}
	var sb strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}

type wireMessage struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Name      string          `json:"name,omitempty"`
	Reasoning string          `json:"reasoning,omitempty"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	var (
		content []byte
		err     error
	)
	if m.Parts != nil {
		content, err = json.Marshal(m.Parts)
	} else {
		content, err = json.Marshal(m.Content)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireMessage{
		Role:      m.Role,
		Content:   content,
		Name:      m.Name,
		Reasoning: m.Reasoning,
	})
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Message{Role: w.Role, Name: w.Name, Reasoning: w.Reasoning}

	raw := bytes.TrimSpace(w.Content)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return nil
	case raw[0] == '"':
		return json.Unmarshal(raw, &m.Content)
	case raw[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		m.Parts = make([]ContentPart, 0, len(items))
		for i, item := range items {
			part, err := DecodeContentPart(item)
			if err != nil {
				return fmt.Errorf("content[%d]: %w", i, err)
			}
			m.Parts = append(m.Parts, part)
		}
		return nil
	default:
		return fmt.Errorf("unsupported message content: %s", raw)
	}
}
