package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PartType 内容块类型
type PartType string

const (
	PartTypeText       PartType = "text"
	PartTypeImageURL   PartType = "image_url"
	PartTypeFile       PartType = "file"
	PartTypeInputAudio PartType = "input_audio"
)

// AudioFormat input_audio 支持的音频格式
type AudioFormat string

const (
	AudioFormatMP3  AudioFormat = "mp3"
	AudioFormatWAV  AudioFormat = "wav"
	AudioFormatM4A  AudioFormat = "m4a"
	AudioFormatAAC  AudioFormat = "aac"
	AudioFormatOGG  AudioFormat = "ogg"
	AudioFormatFLAC AudioFormat = "flac"
	AudioFormatWEBM AudioFormat = "webm"
	AudioFormatOpus AudioFormat = "opus"
)

var ErrUnknownPartType = errors.New("unknown content part type")

// ContentPart 消息内容块
//
// 实现类型固定为 TextPart、ImageURLPart、FilePart、InputAudioPart，
// 包外无法新增实现。
type ContentPart interface {
	Type() PartType
	isContentPart()
}

// TextPart 文本块
type TextPart struct {
	Text string
}

// ImageURLPart 图片块，URL 可以是 http(s) 地址或 data URI
type ImageURLPart struct {
	URL    string
	Detail string // auto | low | high（可选）
}

// FilePart 文件块，Data（base64）与 URL 二选一
type FilePart struct {
	MimeType string
	Data     string
	URL      string
}

// InputAudioPart 音频块
type InputAudioPart struct {
	Data   string // base64
	Format AudioFormat
}

func (TextPart) Type() PartType       { return PartTypeText }
func (ImageURLPart) Type() PartType   { return PartTypeImageURL }
func (FilePart) Type() PartType       { return PartTypeFile }
func (InputAudioPart) Type() PartType { return PartTypeInputAudio }

func (TextPart) isContentPart()       {}
func (ImageURLPart) isContentPart()   {}
func (FilePart) isContentPart()       {}
func (InputAudioPart) isContentPart() {}

type imageURLBody struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type inputAudioBody struct {
	Data   string      `json:"data"`
	Format AudioFormat `json:"format"`
}

type wirePart struct {
	Type       PartType        `json:"type"`
	Text       *string         `json:"text,omitempty"`
	ImageURL   *imageURLBody   `json:"image_url,omitempty"`
	MimeType   string          `json:"mime_type,omitempty"`
	Data       string          `json:"data,omitempty"`
	URL        string          `json:"url,omitempty"`
	InputAudio *inputAudioBody `json:"input_audio,omitempty"`
}

func (p TextPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePart{Type: PartTypeText, Text: &p.Text})
}

func (p ImageURLPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePart{Type: PartTypeImageURL, ImageURL: &imageURLBody{URL: p.URL, Detail: p.Detail}})
}

func (p FilePart) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePart{Type: PartTypeFile, MimeType: p.MimeType, Data: p.Data, URL: p.URL})
}

func (p InputAudioPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePart{Type: PartTypeInputAudio, InputAudio: &inputAudioBody{Data: p.Data, Format: p.Format}})
}

// DecodeContentPart 按 type 字段解码单个内容块
func DecodeContentPart(data []byte) (ContentPart, error) {
	var w wirePart
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	switch w.Type {
	case PartTypeText:
		p := TextPart{}
		if w.Text != nil {
			p.Text = *w.Text
		}
		return p, nil
	case PartTypeImageURL:
		if w.ImageURL == nil {
			return nil, fmt.Errorf("image_url part without image_url body")
		}
		return ImageURLPart{URL: w.ImageURL.URL, Detail: w.ImageURL.Detail}, nil
	case PartTypeFile:
		return FilePart{MimeType: w.MimeType, Data: w.Data, URL: w.URL}, nil
	case PartTypeInputAudio:
		if w.InputAudio == nil {
			return nil, fmt.Errorf("input_audio part without input_audio body")
		}
		return InputAudioPart{Data: w.InputAudio.Data, Format: w.InputAudio.Format}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPartType, w.Type)
	}
}
