// Package service 网关的 HTTP 接口
package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/catalog"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/content"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
	"github.com/lk2023060901/llm-gateway-client/internal/gateway/biz"
	apperrors "github.com/lk2023060901/llm-gateway-client/internal/pkg/errors"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/minio"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/response"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/sse"
)

// Transcriber 语音转写（transcribe.Client 实现该接口）
type Transcriber interface {
	Transcribe(ctx context.Context, src content.Source) (string, error)
}

// Uploader 附件上传（minio.Client 实现该接口）
type Uploader interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (minio.UploadInfo, error)
}

// AttachmentTarget 附件的存放位置：Uploader 非空时上传到桶，否则写入本地目录 Root
type AttachmentTarget struct {
	Uploader Uploader
	Bucket   string
	Prefix   string
	Root     string
}

// Options 服务依赖
type Options struct {
	Hub         *sse.Hub
	Transcriber Transcriber
	Attachments AttachmentTarget
	Heartbeat   time.Duration
	MaxUpload   int64
}

type GatewayService struct {
	uc   *biz.GatewayUseCase
	opts Options
	log  *logger.Logger
}

func NewGatewayService(uc *biz.GatewayUseCase, opts Options, log *logger.Logger) *GatewayService {
	if opts.Hub == nil {
		opts.Hub = sse.NewHub()
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = 32 << 20
	}
	return &GatewayService{uc: uc, opts: opts, log: logger.OrGlobal(log).Named("service")}
}

// RegisterRoutes 注册路由
func (s *GatewayService) RegisterRoutes(r *gin.RouterGroup) {
	models := r.Group("/models")
	{
		models.GET("", s.ListModels)
		models.GET("/remote", s.ListRemoteModels)
		models.GET("/select", s.SelectModel)
	}

	chat := r.Group("/chat")
	{
		chat.POST("/stream", s.StreamChat)
		chat.DELETE("/streams/:id", s.StopStream)
	}

	r.POST("/audio/transcriptions", s.Transcribe)
	r.POST("/attachments", s.UploadAttachment)
}

var knownTasks = map[catalog.Task]bool{
	catalog.TaskChat:   true,
	catalog.TaskReason: true,
	catalog.TaskVision: true,
	catalog.TaskJSON:   true,
	catalog.TaskTool:   true,
}

func parseTask(s string) (catalog.Task, error) {
	t := catalog.Task(strings.ToLower(strings.TrimSpace(s)))
	if t == "" || knownTasks[t] {
		return t, nil
	}
	return "", apperrors.New(apperrors.ErrInvalidParams, fmt.Sprintf("unknown task %q", s))
}

func parseBudget(s string) (catalog.Quality, error) {
	q := catalog.Quality(strings.ToLower(strings.TrimSpace(s)))
	if q == "" || q.Valid() {
		return q, nil
	}
	return "", apperrors.New(apperrors.ErrInvalidParams, fmt.Sprintf("unknown budget %q", s))
}

func (s *GatewayService) ListModels(c *gin.Context) {
	cat, err := s.uc.Models(c.Request.Context())
	if err != nil {
		s.fail(c, "list models", err)
		return
	}
	response.Success(c, gin.H{"models": cat})
}

func (s *GatewayService) ListRemoteModels(c *gin.Context) {
	cat, err := s.uc.RemoteModels(c.Request.Context())
	if err != nil {
		s.fail(c, "list remote models", err)
		return
	}
	response.Success(c, gin.H{"models": cat})
}

func (s *GatewayService) SelectModel(c *gin.Context) {
	task, err := parseTask(c.Query("task"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	budget, err := parseBudget(c.Query("budget"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	spec, err := s.uc.SelectModel(c.Request.Context(), task, budget)
	if err != nil {
		s.fail(c, "select model", err)
		return
	}
	response.Success(c, spec)
}

// ChatRequest 流式对话请求体
type ChatRequest struct {
	Model         string                 `json:"model"`
	Task          string                 `json:"task"`
	Budget        string                 `json:"budget"`
	Messages      []types.Message        `json:"messages" binding:"required,min=1"`
	Attachments   []content.Attachment   `json:"attachments"`
	Reasoning     *types.ReasoningConfig `json:"reasoning"`
	ShowReasoning bool                   `json:"show_reasoning"`
	MaxTokens     int                    `json:"max_tokens" binding:"gte=0"`
	Temperature   *float64               `json:"temperature"`
}

// StreamChat 以 SSE 返回模型输出，流 ID 在 X-Stream-ID 响应头中
func (s *GatewayService) StreamChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}
	task, err := parseTask(req.Task)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	budget, err := parseBudget(req.Budget)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	ctx := c.Request.Context()
	session, err := s.uc.OpenChat(ctx, biz.ChatInput{
		Model:       req.Model,
		Task:        task,
		Budget:      budget,
		Messages:    req.Messages,
		Attachments: req.Attachments,
		Reasoning:   req.Reasoning,
		ShowReason:  req.ShowReasoning,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		s.fail(c, "open chat", err)
		return
	}
	defer session.Stream.Close()

	ctx = logger.WithModel(logger.WithStreamID(ctx, session.Stream.ID()), session.Model)
	c.Request = c.Request.WithContext(ctx)
	log := s.log.WithContext(ctx)
	err = sse.NewRelay(c, session.Stream).
		WithID(session.Stream.ID()).
		WithHub(s.opts.Hub).
		WithHeartbeat(s.opts.Heartbeat).
		WithReasoning(req.ShowReasoning).
		WithLogger(log).
		Run()
	if err != nil {
		log.Warn("chat stream ended with error", zap.Error(err))
		return
	}
	log.Debug("chat stream finished", zap.Bool("stopped", session.Stream.Stopped()))
}

// StopStream 按 ID 停止正在转发的流
func (s *GatewayService) StopStream(c *gin.Context) {
	id := c.Param("id")
	if !s.opts.Hub.Stop(id) {
		response.ErrorWithCode(c, apperrors.ErrNotFound, "stream "+id)
		return
	}
	response.Success(c, gin.H{"id": id, "stopped": true})
}

// Transcribe 上传音频文件（表单字段 file）并返回转写文本
func (s *GatewayService) Transcribe(c *gin.Context) {
	if s.opts.Transcriber == nil {
		response.ErrorWithCode(c, apperrors.ErrServiceUnavail, "transcription disabled")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrContentUnreadable, err.Error())
		return
	}
	defer f.Close()

	text, err := s.opts.Transcriber.Transcribe(c.Request.Context(), content.ReaderSource{Reader: f, Name: fh.Filename})
	if err != nil {
		s.fail(c, "transcribe", err)
		return
	}
	response.Success(c, gin.H{"text": text})
}

// UploadAttachment 保存附件（表单字段 file），返回可直接用于对话请求的 Attachment
func (s *GatewayService) UploadAttachment(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}
	if fh.Size > s.opts.MaxUpload {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, fmt.Sprintf("file exceeds %d bytes", s.opts.MaxUpload))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrContentUnreadable, err.Error())
		return
	}
	defer f.Close()

	name := path.Base(filepath.ToSlash(fh.Filename))
	if name == "." || name == "/" {
		name = "attachment"
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = content.GuessByName(name)
	}
	att := content.Attachment{
		Rel:         path.Join(uuid.NewString(), name),
		Name:        name,
		ContentType: ct,
		Size:        fh.Size,
	}

	if err := s.store(c.Request.Context(), att, f); err != nil {
		s.fail(c, "store attachment", err)
		return
	}
	s.log.Info("attachment stored", zap.String("rel", att.Rel), zap.Int64("size", att.Size))
	c.JSON(http.StatusCreated, response.Response{Code: apperrors.Success, Data: att})
}

func (s *GatewayService) store(ctx context.Context, att content.Attachment, r io.Reader) error {
	t := s.opts.Attachments
	if t.Uploader != nil {
		_, err := t.Uploader.PutObject(ctx, t.Bucket, path.Join(t.Prefix, att.Rel), r, att.Size, att.ContentType)
		return err
	}
	if t.Root == "" {
		return apperrors.New(apperrors.ErrServiceUnavail, "attachment storage not configured")
	}

	dst := filepath.Join(t.Root, filepath.FromSlash(att.Rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (s *GatewayService) fail(c *gin.Context, op string, err error) {
	err = classify(err)
	if apperrors.IsClientError(apperrors.ExtractCode(err)) {
		s.log.Warn(op+" rejected", zap.Error(err))
	} else {
		s.log.Error(op+" failed", zap.Error(err))
	}
	response.HandleError(c, err)
}
