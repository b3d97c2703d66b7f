package content

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
)

const (
	mimeOctetStream = "application/octet-stream"
	mimePDF         = "application/pdf"
)

// extMIME 优先于系统 MIME 表的扩展名映射
var extMIME = map[string]string{
	".pdf":  mimePDF,
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/x-m4a",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
	".weba": "audio/webm",
	".opus": "audio/opus",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".html": "text/html",
	".json": "application/json",
	".xml":  "application/xml",
	".js":   "application/javascript",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".sql":  "application/sql",
}

// textualApplication 按文本处理的 application/* 类型
var textualApplication = map[string]bool{
	"application/json":         true,
	"application/xml":          true,
	"application/xhtml+xml":    true,
	"application/javascript":   true,
	"application/x-javascript": true,
	"application/yaml":         true,
	"application/x-yaml":       true,
	"application/sql":          true,
}

// audioByMIME 与 audioByExt 把音频类型映射到 input_audio 格式
var audioByMIME = map[string]types.AudioFormat{
	"audio/mpeg":  types.AudioFormatMP3,
	"audio/mp3":   types.AudioFormatMP3,
	"audio/wav":   types.AudioFormatWAV,
	"audio/x-wav": types.AudioFormatWAV,
	"audio/m4a":   types.AudioFormatM4A,
	"audio/x-m4a": types.AudioFormatM4A,
	"audio/aac":   types.AudioFormatAAC,
	"audio/ogg":   types.AudioFormatOGG,
	"audio/flac":  types.AudioFormatFLAC,
	"audio/webm":  types.AudioFormatWEBM,
	"audio/opus":  types.AudioFormatOpus,
}

var audioByExt = map[string]types.AudioFormat{
	".mp3":  types.AudioFormatMP3,
	".wav":  types.AudioFormatWAV,
	".m4a":  types.AudioFormatM4A,
	".aac":  types.AudioFormatAAC,
	".ogg":  types.AudioFormatOGG,
	".flac": types.AudioFormatFLAC,
	".webm": types.AudioFormatWEBM,
	".opus": types.AudioFormatOpus,
}

// normalizeMIME 小写并去掉参数（"audio/ogg; codecs=opus" -> "audio/ogg"）
func normalizeMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}

// GuessByName 根据文件名或 URL 路径的扩展名推断 MIME，未知返回空串
func GuessByName(name string) string {
	if name == "" {
		return ""
	}
	if u, err := url.Parse(name); err == nil && u.Scheme != "" && u.Host != "" {
		name = u.Path
	}
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return ""
	}
	if m, ok := extMIME[ext]; ok {
		return m
	}
	return normalizeMIME(mime.TypeByExtension(ext))
}

// resolveMIME 调用方指定 > 扩展名 > 内容嗅探 > octet-stream
func resolveMIME(given, name string, data []byte) string {
	if m := normalizeMIME(given); m != "" {
		return m
	}
	if m := GuessByName(name); m != "" {
		return m
	}
	if len(data) > 0 {
		if m := normalizeMIME(mimetype.Detect(data).String()); m != "" {
			return m
		}
	}
	return mimeOctetStream
}

// AudioFormat 根据 MIME 与文件名确定音频格式，无法识别时为 mp3
func AudioFormat(mimeType, name string) types.AudioFormat {
	if f, ok := audioByMIME[normalizeMIME(mimeType)]; ok {
		return f
	}
	if f, ok := audioByExt[strings.ToLower(path.Ext(name))]; ok {
		return f
	}
	return types.AudioFormatMP3
}

func isTextual(m string) bool {
	return strings.HasPrefix(m, "text/") || textualApplication[m]
}
