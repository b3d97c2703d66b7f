package types

// ChunkKind 流式输出块的种类
type ChunkKind string

const (
	ChunkKindReasoning ChunkKind = "reasoning"
	ChunkKindContent   ChunkKind = "content"
	ChunkKindUsage     ChunkKind = "usage"
)

// Chunk 一次流式迭代中产生的分类输出
//
// 实现类型固定为 ReasoningChunk、ContentChunk、UsageChunk。
type Chunk interface {
	Kind() ChunkKind
	isChunk()
}

// ReasoningChunk 推理文本
type ReasoningChunk struct {
	Text string
}

// ContentChunk 可见回复文本
type ContentChunk struct {
	Text string
}

// UsageChunk 流结束前的用量汇总（原样保留服务端字段）
type UsageChunk struct {
	Usage map[string]any
}

func (ReasoningChunk) Kind() ChunkKind { return ChunkKindReasoning }
func (ContentChunk) Kind() ChunkKind   { return ChunkKindContent }
func (UsageChunk) Kind() ChunkKind     { return ChunkKindUsage }

func (ReasoningChunk) isChunk() {}
func (ContentChunk) isChunk()   {}
func (UsageChunk) isChunk()     {}
