// Package content 把文本与任意文件组装成多模态消息内容块，
// 并把附件拼接到聊天消息列表中。
package content

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
)

var (
	// ErrUnsupportedRemote 远程 URL 只支持图片与 PDF
	ErrUnsupportedRemote = errors.New("only image and PDF URLs are supported; provide a local path or bytes for other files")
	// ErrNilSource 输入为空
	ErrNilSource = errors.New("nil file source")
)

// FromFile 把单个文件转换为内容块
//
// http(s) URL 不会被下载：图片返回 image_url，PDF 返回带 URL 的 file，其余类型返回 ErrUnsupportedRemote。
// 其他输入读入内存后按 MIME 路由；mimeType 非空时优先于推断结果。
func FromFile(src Source, mimeType string) (types.ContentPart, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if p, ok := src.(PathSource); ok && p.IsRemote() {
		return fromURL(string(p))
	}

	data, name, err := read(src)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return fromBytes(data, name, resolveMIME(mimeType, name, data)), nil
}

func fromURL(u string) (types.ContentPart, error) {
	guessed := GuessByName(u)
	if strings.HasPrefix(guessed, "image/") {
		return types.ImageURLPart{URL: u}, nil
	}
	if guessed == mimePDF || strings.HasSuffix(strings.ToLower(u), ".pdf") {
		return types.FilePart{MimeType: mimePDF, URL: u}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedRemote, u)
}

func fromBytes(data []byte, name, m string) types.ContentPart {
	switch {
	case strings.HasPrefix(m, "image/"):
		return types.ImageURLPart{URL: DataURI(data, m)}
	case m == mimePDF:
		return types.FilePart{MimeType: mimePDF, Data: encode(data)}
	case strings.HasPrefix(m, "audio/"):
		return types.InputAudioPart{Data: encode(data), Format: AudioFormat(m, name)}
	case isTextual(m):
		return types.TextPart{Text: strings.ToValidUTF8(string(data), "\uFFFD")}
	default:
		return types.FilePart{MimeType: m, Data: encode(data)}
	}
}

// From 生成内容块列表：可选的文本块在前，随后按顺序每个文件一个块
func From(text string, files ...Source) ([]types.ContentPart, error) {
	parts := make([]types.ContentPart, 0, len(files)+1)
	if text != "" {
		parts = append(parts, types.TextPart{Text: text})
	}
	for i, f := range files {
		part, err := FromFile(f, "")
		if err != nil {
			return nil, fmt.Errorf("file %d: %w", i, err)
		}
		parts = append(parts, part)
	}
	return parts, nil
}

// DataURI 生成 base64 data URI
func DataURI(data []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + encode(data)
}

func encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
