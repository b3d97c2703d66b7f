package catalog

import "fmt"

const (
	DefaultContextWindow   = 128000
	DefaultMaxOutputTokens = 8192
	DefaultCurrency        = "USD"
)

// ValidationError 目录校验失败
type ValidationError struct {
	Index  int    // 在目录中的位置
	ID     string // 模型 ID（可能为空）
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("catalog[%d]: %s %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("catalog[%d] %s: %s %s", e.Index, e.ID, e.Field, e.Reason)
}

// Validate 原地补全所有未设置字段，并拒绝缺少 ID、价格为负或限速为负的条目
//
// 未知的质量 / 速度档位被归一为 mid / balanced，不视为错误。
// 对已经校验过的目录再次调用不会产生变化。
func Validate(cat Catalog) error {
	for i := range cat {
		if err := validateSpec(i, &cat[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateSpec(i int, m *ModelSpec) error {
	if m.ID == "" {
		return &ValidationError{Index: i, Field: "id", Reason: "is required"}
	}
	if m.Provider == "" {
		m.Provider = ProviderFromID(m.ID)
	}
	if m.Label == "" {
		m.Label = m.ID
	}
	if m.Family == "" {
		m.Family = ProviderFromID(m.ID)
	}
	if m.ContextWindow <= 0 {
		m.ContextWindow = DefaultContextWindow
	}
	if m.MaxOutputTokens <= 0 {
		m.MaxOutputTokens = DefaultMaxOutputTokens
	}

	fill(&m.Modalities.Text, true)
	fill(&m.Modalities.Vision, false)
	fill(&m.Modalities.AudioIn, false)
	fill(&m.Modalities.AudioOut, false)

	fill(&m.Features.JSONMode, true)
	fill(&m.Features.ToolUse, true)
	fill(&m.Features.FunctionCall, true)
	fill(&m.Features.Reasoning, false)

	if !m.Tiers.Quality.Valid() {
		m.Tiers.Quality = QualityMid
	}
	if !m.Tiers.Speed.Valid() {
		m.Tiers.Speed = SpeedBalanced
	}

	if p := m.Pricing.InputPerMillion; p != nil && *p < 0 {
		return &ValidationError{Index: i, ID: m.ID, Field: "pricing.input_per_million", Reason: "must be >= 0"}
	}
	if p := m.Pricing.OutputPerMillion; p != nil && *p < 0 {
		return &ValidationError{Index: i, ID: m.ID, Field: "pricing.output_per_million", Reason: "must be >= 0"}
	}
	if m.Pricing.Currency == "" {
		m.Pricing.Currency = DefaultCurrency
	}

	if l := m.Limits.TPM; l != nil && *l < 0 {
		return &ValidationError{Index: i, ID: m.ID, Field: "limits.tpm", Reason: "must be >= 0"}
	}
	if l := m.Limits.RPM; l != nil && *l < 0 {
		return &ValidationError{Index: i, ID: m.ID, Field: "limits.rpm", Reason: "must be >= 0"}
	}

	if m.Meta == nil {
		m.Meta = map[string]any{}
	}
	return nil
}

func fill(p **bool, def bool) {
	if *p == nil {
		*p = Ptr(def)
	}
}
