// Package catalog 描述可用模型的能力与成本档位，
// 提供校验、合并、按任务选择、远端拉取、导出与持久化。
package catalog

import "strings"

// Quality 质量 / 成本档位
type Quality string

const (
	QualityLow  Quality = "low"
	QualityMid  Quality = "mid"
	QualityHigh Quality = "high"
)

// Speed 速度档位
type Speed string

const (
	SpeedFast     Speed = "fast"
	SpeedBalanced Speed = "balanced"
	SpeedSlow     Speed = "slow"
)

// Rank 质量档位的序数（low=0, mid=1, high=2）
func (q Quality) Rank() int {
	switch q {
	case QualityLow:
		return 0
	case QualityHigh:
		return 2
	default:
		return 1
	}
}

// Valid 是否为已知档位
func (q Quality) Valid() bool {
	return q == QualityLow || q == QualityMid || q == QualityHigh
}

// Rank 速度档位的序数（slow=0, balanced=1, fast=2）
func (s Speed) Rank() int {
	switch s {
	case SpeedSlow:
		return 0
	case SpeedFast:
		return 2
	default:
		return 1
	}
}

// Valid 是否为已知档位
func (s Speed) Valid() bool {
	return s == SpeedFast || s == SpeedBalanced || s == SpeedSlow
}

// Modalities 输入输出模态；nil 表示未设置，由 Validate 补默认值
type Modalities struct {
	Text     *bool `json:"text,omitempty" yaml:"text,omitempty"`
	Vision   *bool `json:"vision,omitempty" yaml:"vision,omitempty"`
	AudioIn  *bool `json:"audio_in,omitempty" yaml:"audio_in,omitempty"`
	AudioOut *bool `json:"audio_out,omitempty" yaml:"audio_out,omitempty"`
}

// Features 接口能力
type Features struct {
	JSONMode     *bool `json:"json_mode,omitempty" yaml:"json_mode,omitempty"`
	ToolUse      *bool `json:"tool_use,omitempty" yaml:"tool_use,omitempty"`
	FunctionCall *bool `json:"function_call,omitempty" yaml:"function_call,omitempty"`
	Reasoning    *bool `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
}

// Tiers 质量与速度档位
type Tiers struct {
	Quality Quality `json:"quality,omitempty" yaml:"quality,omitempty"`
	Speed   Speed   `json:"speed,omitempty" yaml:"speed,omitempty"`
}

// Pricing 价格提示（每百万 token）
type Pricing struct {
	InputPerMillion  *float64 `json:"input_per_million,omitempty" yaml:"input_per_million,omitempty"`
	OutputPerMillion *float64 `json:"output_per_million,omitempty" yaml:"output_per_million,omitempty"`
	Currency         string   `json:"currency,omitempty" yaml:"currency,omitempty"`
	LastVerifiedAt   string   `json:"last_verified_at,omitempty" yaml:"last_verified_at,omitempty"`
	PricingSource    string   `json:"pricing_source,omitempty" yaml:"pricing_source,omitempty"`
}

// Limits 速率限制
type Limits struct {
	TPM *int `json:"tpm,omitempty" yaml:"tpm,omitempty"`
	RPM *int `json:"rpm,omitempty" yaml:"rpm,omitempty"`
}

// ModelSpec 模型描述
//
// 字符串为空、整数为 0、指针为 nil 均表示未设置：合并时不覆盖对方，校验时补默认值。
type ModelSpec struct {
	ID              string         `json:"id" yaml:"id"`
	Provider        string         `json:"provider,omitempty" yaml:"provider,omitempty"`
	Label           string         `json:"label,omitempty" yaml:"label,omitempty"`
	Family          string         `json:"family,omitempty" yaml:"family,omitempty"`
	ContextWindow   int            `json:"context_window,omitempty" yaml:"context_window,omitempty"`
	MaxOutputTokens int            `json:"max_output_tokens,omitempty" yaml:"max_output_tokens,omitempty"`
	Modalities      Modalities     `json:"modalities" yaml:"modalities"`
	Features        Features       `json:"features" yaml:"features"`
	Tiers           Tiers          `json:"tiers" yaml:"tiers"`
	Pricing         Pricing        `json:"pricing" yaml:"pricing"`
	Limits          Limits         `json:"limits" yaml:"limits"`
	Meta            map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Catalog 按插入顺序排列的模型集合
type Catalog []ModelSpec

// HasText 等能力查询，未设置视为 false
func (m ModelSpec) HasText() bool      { return flag(m.Modalities.Text) }
func (m ModelSpec) HasVision() bool    { return flag(m.Modalities.Vision) }
func (m ModelSpec) HasJSONMode() bool  { return flag(m.Features.JSONMode) }
func (m ModelSpec) HasReasoning() bool { return flag(m.Features.Reasoning) }

// HasTools tool_use 或 function_call 任一可用
func (m ModelSpec) HasTools() bool {
	return flag(m.Features.ToolUse) || flag(m.Features.FunctionCall)
}

// Clone 深拷贝
func (m ModelSpec) Clone() ModelSpec {
	out := m
	out.Modalities = Modalities{
		Text:     clonePtr(m.Modalities.Text),
		Vision:   clonePtr(m.Modalities.Vision),
		AudioIn:  clonePtr(m.Modalities.AudioIn),
		AudioOut: clonePtr(m.Modalities.AudioOut),
	}
	out.Features = Features{
		JSONMode:     clonePtr(m.Features.JSONMode),
		ToolUse:      clonePtr(m.Features.ToolUse),
		FunctionCall: clonePtr(m.Features.FunctionCall),
		Reasoning:    clonePtr(m.Features.Reasoning),
	}
	out.Pricing.InputPerMillion = clonePtr(m.Pricing.InputPerMillion)
	out.Pricing.OutputPerMillion = clonePtr(m.Pricing.OutputPerMillion)
	out.Limits = Limits{TPM: clonePtr(m.Limits.TPM), RPM: clonePtr(m.Limits.RPM)}
	out.Meta = cloneMap(m.Meta)
	return out
}

// Clone 深拷贝整个目录
func (c Catalog) Clone() Catalog {
	if c == nil {
		return nil
	}
	out := make(Catalog, len(c))
	for i, m := range c {
		out[i] = m.Clone()
	}
	return out
}

// IDs 返回按顺序排列的模型 ID
func (c Catalog) IDs() []string {
	ids := make([]string, len(c))
	for i, m := range c {
		ids[i] = m.ID
	}
	return ids
}

// Find 按 ID 查找
func (c Catalog) Find(id string) (ModelSpec, bool) {
	for _, m := range c {
		if m.ID == id {
			return m, true
		}
	}
	return ModelSpec{}, false
}

// ProviderFromID 取 ID 中 "/" 之前的部分，没有 "/" 时为 "unknown"
func ProviderFromID(id string) string {
	if p, _, ok := strings.Cut(id, "/"); ok {
		return p
	}
	return "unknown"
}

func flag(p *bool) bool {
	return p != nil && *p
}

// Ptr 返回 v 的指针，便于构造可选字段
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}
