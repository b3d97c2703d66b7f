package types

// Model 远端模型列表中的一项
//
// 只有 ID、名称和上下文长度被认为是可信的，其余能力字段由 catalog 补默认值。
type Model struct {
	ID            string `json:"id"`             // 模型 ID（vendor/model）
	Name          string `json:"name"`           // 显示名称
	ContextLength int    `json:"context_length"` // 上下文窗口大小，未知为 0
}
