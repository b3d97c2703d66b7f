package catalog

// defaultPricingSource 内置目录价格提示的来源
const defaultPricingSource = "openrouter-2025-10-public"

type builtin struct {
	id        string
	label     string
	vision    bool
	reasoning bool
	speed     Speed
}

var builtins = []builtin{
	{id: "deepseek/deepseek-v3.2-exp", label: "Deepseek V3.2 Experimental", speed: SpeedFast},
	{id: "moonshotai/kimi-k2-0905", label: "Kimi K2 0905"},
	{id: "z-ai/glm-4.6", label: "GLM 4.6"},
	{id: "qwen/qwen3-max", label: "Qwen3 Max"},
	{id: "qwen/qwen3-vl-235b-a22b-thinking", label: "Qwen3 VL 235B A22B Thinking", vision: true, reasoning: true},
	{id: "qwen/qwen3-vl-235b-a22b-instruct", label: "Qwen3 VL 235B A22B Instruct", vision: true},
	{id: "anthropic/claude-haiku-4.5", label: "Claude Haiku 4.5"},
	{id: "anthropic/claude-sonnet-4.5", label: "Claude Sonnet 4.5"},
	{id: "anthropic/claude-opus-4.1", label: "Claude Opus 4.1"},
	{id: "google/gemini-2.5-flash-lite", label: "Gemini 2.5 Flash Lite", vision: true},
	{id: "google/gemini-2.5-flash", label: "Gemini 2.5 Flash", vision: true},
	{id: "google/gemini-2.5-pro", label: "Gemini 2.5 Pro", vision: true},
	{id: "x-ai/grok-4", label: "Grok 4", vision: true},
	{id: "openai/gpt-5-mini", label: "GPT-5 Mini", vision: true},
	{id: "openai/gpt-5", label: "GPT-5", vision: true},
	{id: "openai/gpt-5-pro", label: "GPT-5 Pro", vision: true},
}

// NewSpec 创建一个所有字段都已填充的模型描述，id 为空时返回 *ValidationError
func NewSpec(id, label string, vision, reasoning bool) (ModelSpec, error) {
	m := ModelSpec{
		ID:    id,
		Label: label,
		Modalities: Modalities{
			Text:     Ptr(true),
			Vision:   Ptr(vision),
			AudioIn:  Ptr(false),
			AudioOut: Ptr(false),
		},
		Features: Features{
			JSONMode:     Ptr(true),
			ToolUse:      Ptr(true),
			FunctionCall: Ptr(true),
			Reasoning:    Ptr(reasoning),
		},
		Tiers: Tiers{Quality: QualityMid, Speed: SpeedBalanced},
	}
	if err := validateSpec(0, &m); err != nil {
		return ModelSpec{}, err
	}
	return m, nil
}

// Default 返回内置默认目录（每次调用返回新副本）
func Default() Catalog {
	out := make(Catalog, 0, len(builtins))
	for _, b := range builtins {
		m, err := NewSpec(b.id, b.label, b.vision, b.reasoning)
		if err != nil {
			// 内置表的 id 均非空
			panic(err)
		}
		if b.speed != "" {
			m.Tiers.Speed = b.speed
		}
		m.Pricing.PricingSource = defaultPricingSource
		out = append(out, m)
	}
	return out
}
