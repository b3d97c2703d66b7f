package types

// ChatCompletionRequest 聊天补全请求（OpenAI 兼容格式）
type ChatCompletionRequest struct {
	Model            string           `json:"model"`
	Messages         []Message        `json:"messages"`
	MaxTokens        int              `json:"max_tokens,omitempty"`
	Stream           bool             `json:"stream,omitempty"`
	IncludeReasoning *bool            `json:"include_reasoning,omitempty"`
	Reasoning        *ReasoningConfig `json:"reasoning,omitempty"`
	Temperature      *float64         `json:"temperature,omitempty"`
	TopP             *float64         `json:"top_p,omitempty"`
}

// ReasoningConfig 推理参数
type ReasoningConfig struct {
	Effort    string `json:"effort,omitempty"`     // low | medium | high
	MaxTokens int    `json:"max_tokens,omitempty"` // 推理 token 上限
	Exclude   bool   `json:"exclude,omitempty"`    // 不在响应中返回推理内容
	Enabled   *bool  `json:"enabled,omitempty"`
}

// Bool 返回 b 的指针
func Bool(b bool) *bool { return &b }

// Float64 返回 f 的指针
func Float64(f float64) *float64 { return &f }
