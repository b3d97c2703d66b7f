package openrouter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
)

const (
	dataPrefix  = "data: "
	doneMarker  = "[DONE]"
	reasoningTy = "reasoning.text"
)

// Decoder 将 SSE 响应体解析为分类输出块
//
// 每次 Next 只处理一行：非 data 行、空 choices 返回空切片；
// 遇到 [DONE] 或响应体结束时返回 io.EOF。
type Decoder struct {
	r    *bufio.Reader
	done bool
}

// NewDecoder 创建解码器
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next 读取并解析下一行
func (d *Decoder) Next() ([]types.Chunk, error) {
	if d.done {
		return nil, io.EOF
	}

	line, err := d.r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, types.NewTransportError(providerName, "read stream failed", err)
		}
		d.done = true
		if line == "" {
			return nil, io.EOF
		}
	}

	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, dataPrefix) {
		return nil, nil
	}
	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == doneMarker {
		d.done = true
		return nil, io.EOF
	}
	return decodeEvent(payload)
}

// decodeEvent 解析单个 data 负载
func decodeEvent(payload string) ([]types.Chunk, error) {
	if !gjson.Valid(payload) {
		return nil, decodeError(fmt.Sprintf("malformed event: %.120s", payload))
	}
	root := gjson.Parse(payload)
	if !root.IsObject() {
		return nil, decodeError(fmt.Sprintf("event is not an object: %.120s", payload))
	}

	// 用量块独占一行，不再解析 delta
	if usage := root.Get("usage"); usage.IsObject() {
		m, _ := usage.Value().(map[string]any)
		return []types.Chunk{types.UsageChunk{Usage: m}}, nil
	}

	delta := root.Get("choices.0.delta")
	if !delta.IsObject() {
		return nil, nil
	}

	var chunks []types.Chunk
	var reason strings.Builder
	if r := delta.Get("reasoning"); r.Type == gjson.String {
		reason.WriteString(r.Str)
	}
	delta.Get("reasoning_details").ForEach(func(_, detail gjson.Result) bool {
		if detail.Get("type").Str == reasoningTy {
			reason.WriteString(detail.Get("text").Str)
		}
		return true
	})
	if reason.Len() > 0 {
		chunks = append(chunks, types.ReasoningChunk{Text: reason.String()})
	}

	if content := delta.Get("content"); content.Type == gjson.String && content.Str != "" {
		chunks = append(chunks, types.ContentChunk{Text: content.Str})
	}
	return chunks, nil
}

func decodeError(msg string) *types.ProviderError {
	return &types.ProviderError{
		Type:     types.ErrorTypeDecode,
		Provider: providerName,
		Message:  msg,
	}
}
