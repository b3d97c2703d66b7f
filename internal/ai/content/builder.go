package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/workerpool"
)

// DefaultMaxInlineBytes 默认内联上限（8MB）
const DefaultMaxInlineBytes int64 = 8 << 20

// Attachment 附件描述
type Attachment struct {
	Rel         string `json:"rel"`          // 存储中的相对路径
	Name        string `json:"name"`         // 显示名称，缺省取 Rel 的文件名
	ContentType string `json:"content_type"` // 缺省按名称推断
	Size        int64  `json:"size"`         // 已知大小，<=0 表示未知
}

// Resolver 把附件解析为可读取的文件输入
//
// 返回 (nil, nil) 表示无法取得内容，附件会以文本占位形式出现。
// 返回的 ReaderSource 若实现 io.Closer，由 MessageBuilder 负责关闭。
type Resolver interface {
	Resolve(ctx context.Context, att Attachment) (Source, error)
}

// ResolverFunc 函数形式的 Resolver
type ResolverFunc func(ctx context.Context, att Attachment) (Source, error)

func (f ResolverFunc) Resolve(ctx context.Context, att Attachment) (Source, error) {
	return f(ctx, att)
}

// MessageBuilder 把附件拼接到最后一条用户消息
type MessageBuilder struct {
	resolver       Resolver
	maxInlineBytes int64
	workers        *workerpool.Pool
	log            *logger.Logger
}

// NewMessageBuilder 创建 MessageBuilder，maxInlineBytes<=0 时使用默认值
func NewMessageBuilder(resolver Resolver, maxInlineBytes int64, log *logger.Logger) *MessageBuilder {
	if maxInlineBytes <= 0 {
		maxInlineBytes = DefaultMaxInlineBytes
	}
	return &MessageBuilder{
		resolver:       resolver,
		maxInlineBytes: maxInlineBytes,
		log:            logger.OrGlobal(log).Named("content"),
	}
}

// WithWorkers 多个附件时在 pool 中并发解析，结果顺序不变
func (b *MessageBuilder) WithWorkers(p *workerpool.Pool) *MessageBuilder {
	b.workers = p
	return b
}

// Build 返回拼接附件后的消息列表，不修改输入
//
// 没有用户消息时原样返回。单个附件失败只记录日志并跳过。
func (b *MessageBuilder) Build(ctx context.Context, messages []types.Message, attachments []Attachment) []types.Message {
	if len(attachments) == 0 {
		return messages
	}

	idx := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			idx = i
			break
		}
	}
	if idx < 0 {
		return messages
	}

	parts := append(messages[idx].NormalizedParts(), b.attachAll(ctx, attachments)...)

	out := slices.Clone(messages)
	out[idx].Content = ""
	out[idx].Parts = parts
	return out
}

func (b *MessageBuilder) attachAll(ctx context.Context, attachments []Attachment) []types.ContentPart {
	out := make([]types.ContentPart, len(attachments))
	errs := make([]error, len(attachments))
	if b.workers == nil || len(attachments) < 2 {
		for i, att := range attachments {
			out[i], errs[i] = b.attach(ctx, att)
		}
	} else {
		tasks := make([]func(context.Context) error, len(attachments))
		for i, att := range attachments {
			tasks[i] = func(ctx context.Context) error {
				var err error
				out[i], err = b.attach(ctx, att)
				return err
			}
		}
		errs = b.workers.Run(ctx, tasks)
	}

	parts := make([]types.ContentPart, 0, len(attachments))
	for i, att := range attachments {
		if errs[i] != nil {
			b.log.Warn("skip attachment", zap.String("rel", att.Rel), zap.String("name", att.Name), zap.Error(errs[i]))
			continue
		}
		parts = append(parts, out[i])
	}
	return parts
}

func (b *MessageBuilder) attach(ctx context.Context, att Attachment) (types.ContentPart, error) {
	rel := strings.TrimSpace(att.Rel)
	name := att.Name
	if name == "" {
		name = path.Base(rel)
	}
	if name == "" || name == "." || name == "/" {
		name = "file"
	}
	mimeType := normalizeMIME(att.ContentType)
	if mimeType == "" {
		mimeType = GuessByName(name)
	}

	var src Source
	if b.resolver != nil {
		var err error
		if src, err = b.resolver.Resolve(ctx, att); err != nil {
			return nil, fmt.Errorf("resolve: %w", err)
		}
	}
	if c, ok := src.(ReaderSource); ok {
		if closer, ok := c.Reader.(io.Closer); ok {
			defer closer.Close()
		}
	}

	src, size, err := b.measure(src, att.Size)
	if err != nil {
		return nil, err
	}
	if src == nil || size > b.maxInlineBytes {
		return stub(name, mimeType, size, rel), nil
	}

	if r, ok := src.(ReaderSource); ok && r.Name == "" {
		r.Name = name
		src = r
	}
	return FromFile(src, mimeType)
}

// measure 在尽量不读取全部内容的前提下确定大小
//
// 可 Seek 的流通过 Seek 计算大小并恢复原位置；不可 Seek 的流最多读取上限+1 字节，
// 超出上限时以上限+1 作为大小。
func (b *MessageBuilder) measure(src Source, known int64) (Source, int64, error) {
	switch s := src.(type) {
	case nil:
		return nil, known, nil
	case PathSource:
		if known > 0 || s.IsRemote() {
			return s, known, nil
		}
		fi, err := os.Stat(string(s))
		if err != nil {
			return s, 0, nil
		}
		return s, fi.Size(), nil
	case ByteSource:
		if known > 0 {
			return s, known, nil
		}
		return s, int64(len(s)), nil
	case ReaderSource:
		if s.Reader == nil {
			return nil, 0, ErrNilSource
		}
		if seeker, ok := s.Reader.(io.Seeker); ok {
			size, err := seekSize(seeker)
			if err != nil {
				return nil, 0, fmt.Errorf("measure stream: %w", err)
			}
			return s, size, nil
		}
		data, err := io.ReadAll(io.LimitReader(s.Reader, b.maxInlineBytes+1))
		if err != nil {
			return nil, 0, fmt.Errorf("read stream: %w", err)
		}
		if int64(len(data)) > b.maxInlineBytes {
			return s, b.maxInlineBytes + 1, nil
		}
		return ReaderSource{Reader: bytes.NewReader(data), Name: s.Name}, int64(len(data)), nil
	default:
		return nil, 0, ErrNilSource
	}
}

// seekSize 返回当前位置到末尾的字节数，并恢复原位置
func seekSize(s io.Seeker) (int64, error) {
	pos, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := s.Seek(pos, io.SeekStart); err != nil {
		return 0, err
	}
	return end - pos, nil
}

// stub 生成超限或无法读取的附件占位文本
func stub(name, mimeType string, size int64, rel string) types.ContentPart {
	if mimeType == "" {
		mimeType = mimeOctetStream
	}
	human := "unknown size"
	if size > 0 {
		human = fmt.Sprintf("%.1fMB", float64(size)/1024/1024)
	}
	return types.TextPart{Text: fmt.Sprintf("Attachment: %s (%s, %s) at %s", name, mimeType, human, rel)}
}
