package content

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Source 文件输入
//
// 实现类型固定为 PathSource、ByteSource、ReaderSource。
type Source interface {
	isSource()
}

// PathSource 本地路径或 http(s) URL
type PathSource string

// ByteSource 内存中的文件内容
type ByteSource []byte

// ReaderSource 字节流，Name 用于推断 MIME 与音频格式（可选）
type ReaderSource struct {
	io.Reader
	Name string
}

func (PathSource) isSource()   {}
func (ByteSource) isSource()   {}
func (ReaderSource) isSource() {}

// IsRemote 是否为 http(s) URL
func (p PathSource) IsRemote() bool {
	s := string(p)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// read 读取全部内容，返回数据与文件名（未知为空）
func read(src Source) ([]byte, string, error) {
	switch s := src.(type) {
	case PathSource:
		data, err := os.ReadFile(string(s))
		if err != nil {
			return nil, "", err
		}
		return data, filepath.Base(string(s)), nil
	case ByteSource:
		return []byte(s), "", nil
	case ReaderSource:
		if s.Reader == nil {
			return nil, "", ErrNilSource
		}
		data, err := io.ReadAll(s.Reader)
		if err != nil {
			return nil, "", err
		}
		return data, filepath.Base(s.Name), nil
	default:
		return nil, "", ErrNilSource
	}
}
