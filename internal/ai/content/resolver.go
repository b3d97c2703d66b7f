package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot 附件路径越出根目录
var ErrOutsideRoot = errors.New("attachment path escapes root")

// DirResolver 在本地目录下解析附件的 Rel 路径
type DirResolver struct {
	Root string
}

// Resolve 实现 Resolver；文件不存在时返回 (nil, nil)，附件以占位文本出现
func (d DirResolver) Resolve(_ context.Context, att Attachment) (Source, error) {
	rel := strings.TrimSpace(att.Rel)
	if rel == "" {
		return nil, nil
	}
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return nil, fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	full := filepath.Join(d.Root, filepath.FromSlash(rel))
	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return PathSource(full), nil
}

// ObjectOpener 打开对象存储中的对象（pkg/minio.Client 实现该接口）
//
// 对象不存在时返回的错误应满足 errors.Is(err, fs.ErrNotExist)。
type ObjectOpener interface {
	OpenObject(ctx context.Context, bucket, key string) (io.ReadSeekCloser, error)
}

// ObjectResolver 从对象存储桶中解析附件
//
// 对象键为 Prefix 与 Rel 拼接；返回的流可 Seek，大小检测不会读取内容。
type ObjectResolver struct {
	Store  ObjectOpener
	Bucket string
	Prefix string
}

// Resolve 实现 Resolver
func (o ObjectResolver) Resolve(ctx context.Context, att Attachment) (Source, error) {
	rel := strings.TrimLeft(strings.TrimSpace(att.Rel), "/")
	if rel == "" {
		return nil, nil
	}
	key := path.Join(o.Prefix, rel)
	if o.Prefix != "" && !strings.HasPrefix(key, strings.TrimSuffix(path.Clean(o.Prefix), "/")+"/") {
		return nil, fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	obj, err := o.Store.OpenObject(ctx, o.Bucket, key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	name := att.Name
	if name == "" {
		name = path.Base(key)
	}
	return ReaderSource{Reader: obj, Name: name}, nil
}
