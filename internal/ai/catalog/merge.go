package catalog

import "fmt"

// Conflict 同一 ID 同时出现在两侧时的取值方
type Conflict string

const (
	PreferOverrides Conflict = "prefer_overrides"
	PreferBase      Conflict = "prefer_base"
)

// ParseConflict 解析冲突策略，空串为 PreferOverrides
func ParseConflict(s string) (Conflict, error) {
	switch Conflict(s) {
	case "", PreferOverrides:
		return PreferOverrides, nil
	case PreferBase:
		return PreferBase, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q", s)
	}
}

// Merge 按 ID 合并两个目录并重新校验
//
// 两侧都有的 ID 逐字段深度合并：胜出方已设置的字段覆盖另一方，
// Meta 等嵌套 map 按 key 递归合并而不是整体替换。输入不会被修改。
// 结果保持 base 的顺序，overrides 中新增的 ID 依次追加在后。
func Merge(base, overrides Catalog, conflict Conflict) (Catalog, error) {
	idx := make(map[string]int, len(base)+len(overrides))
	out := make(Catalog, 0, len(base)+len(overrides))

	for _, m := range base {
		if m.ID == "" {
			continue
		}
		if i, ok := idx[m.ID]; ok {
			out[i] = m.Clone()
			continue
		}
		idx[m.ID] = len(out)
		out = append(out, m.Clone())
	}

	for _, m := range overrides {
		if m.ID == "" {
			continue
		}
		i, ok := idx[m.ID]
		if !ok {
			idx[m.ID] = len(out)
			out = append(out, m.Clone())
			continue
		}
		if conflict == PreferBase {
			out[i] = mergeSpec(m, out[i])
		} else {
			out[i] = mergeSpec(out[i], m)
		}
	}

	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// mergeSpec 以 lo 为底，hi 中已设置的字段胜出
func mergeSpec(lo, hi ModelSpec) ModelSpec {
	out := ModelSpec{
		ID:              lo.ID,
		Provider:        pick(hi.Provider, lo.Provider),
		Label:           pick(hi.Label, lo.Label),
		Family:          pick(hi.Family, lo.Family),
		ContextWindow:   pick(hi.ContextWindow, lo.ContextWindow),
		MaxOutputTokens: pick(hi.MaxOutputTokens, lo.MaxOutputTokens),
		Modalities: Modalities{
			Text:     pick(hi.Modalities.Text, lo.Modalities.Text),
			Vision:   pick(hi.Modalities.Vision, lo.Modalities.Vision),
			AudioIn:  pick(hi.Modalities.AudioIn, lo.Modalities.AudioIn),
			AudioOut: pick(hi.Modalities.AudioOut, lo.Modalities.AudioOut),
		},
		Features: Features{
			JSONMode:     pick(hi.Features.JSONMode, lo.Features.JSONMode),
			ToolUse:      pick(hi.Features.ToolUse, lo.Features.ToolUse),
			FunctionCall: pick(hi.Features.FunctionCall, lo.Features.FunctionCall),
			Reasoning:    pick(hi.Features.Reasoning, lo.Features.Reasoning),
		},
		Tiers: Tiers{
			Quality: pick(hi.Tiers.Quality, lo.Tiers.Quality),
			Speed:   pick(hi.Tiers.Speed, lo.Tiers.Speed),
		},
		Pricing: Pricing{
			InputPerMillion:  pick(hi.Pricing.InputPerMillion, lo.Pricing.InputPerMillion),
			OutputPerMillion: pick(hi.Pricing.OutputPerMillion, lo.Pricing.OutputPerMillion),
			Currency:         pick(hi.Pricing.Currency, lo.Pricing.Currency),
			LastVerifiedAt:   pick(hi.Pricing.LastVerifiedAt, lo.Pricing.LastVerifiedAt),
			PricingSource:    pick(hi.Pricing.PricingSource, lo.Pricing.PricingSource),
		},
		Limits: Limits{
			TPM: pick(hi.Limits.TPM, lo.Limits.TPM),
			RPM: pick(hi.Limits.RPM, lo.Limits.RPM),
		},
		Meta: mergeMaps(lo.Meta, hi.Meta),
	}
	return out.Clone()
}

func pick[T comparable](winner, other T) T {
	var zero T
	if winner != zero {
		return winner
	}
	return other
}

// mergeMaps 递归合并，两侧同为 map 时继续向下合并，否则 hi 胜出
func mergeMaps(lo, hi map[string]any) map[string]any {
	if lo == nil && hi == nil {
		return nil
	}
	out := cloneMap(lo)
	if out == nil {
		out = make(map[string]any, len(hi))
	}
	for k, v := range hi {
		if nv, ok := v.(map[string]any); ok {
			if ov, ok := out[k].(map[string]any); ok {
				out[k] = mergeMaps(ov, nv)
				continue
			}
			out[k] = cloneMap(nv)
			continue
		}
		out[k] = v
	}
	return out
}
