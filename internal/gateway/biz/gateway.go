// Package biz 网关业务逻辑：模型目录查询、模型选择与流式对话的组装
package biz

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/catalog"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/content"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/openrouter"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
)

// CatalogRepo 模型目录来源（data.CatalogRepo 实现该接口）
type CatalogRepo interface {
	Load(ctx context.Context) (catalog.Catalog, error)
}

// ChatClient 流式补全（openrouter.Client 实现该接口）
type ChatClient interface {
	Stream(ctx context.Context, req types.ChatCompletionRequest) (*openrouter.Stream, error)
}

// Policy 选择策略，每次调用时读取以便运行期修改允许列表
type Policy interface {
	SelectOptions() catalog.SelectOptions
	Budget() catalog.Quality
}

// ChatInput 一次对话请求
type ChatInput struct {
	Model       string
	Task        catalog.Task
	Budget      catalog.Quality
	Messages    []types.Message
	Attachments []content.Attachment
	Reasoning   *types.ReasoningConfig
	ShowReason  bool
	MaxTokens   int
	Temperature *float64
}

// ChatSession 已建立的上游流
type ChatSession struct {
	Stream *openrouter.Stream
	Model  string
}

// GatewayUseCase 网关用例
type GatewayUseCase struct {
	repo    CatalogRepo
	client  ChatClient
	fetcher *catalog.Fetcher
	builder *content.MessageBuilder
	policy  Policy
	ttl     time.Duration
	log     *logger.Logger
}

func NewGatewayUseCase(
	repo CatalogRepo,
	client ChatClient,
	fetcher *catalog.Fetcher,
	builder *content.MessageBuilder,
	policy Policy,
	ttl time.Duration,
	log *logger.Logger,
) *GatewayUseCase {
	return &GatewayUseCase{
		repo:    repo,
		client:  client,
		fetcher: fetcher,
		builder: builder,
		policy:  policy,
		ttl:     ttl,
		log:     logger.OrGlobal(log).Named("gateway"),
	}
}

// Models 当前生效的目录
func (uc *GatewayUseCase) Models(ctx context.Context) (catalog.Catalog, error) {
	return uc.repo.Load(ctx)
}

// RemoteModels 远端模型列表（带缓存）
func (uc *GatewayUseCase) RemoteModels(ctx context.Context) (catalog.Catalog, error) {
	return uc.fetcher.Fetch(ctx, uc.ttl)
}

// SelectModel 按任务与预算选择模型，budget 为空时使用配置的默认预算
func (uc *GatewayUseCase) SelectModel(ctx context.Context, task catalog.Task, budget catalog.Quality) (catalog.ModelSpec, error) {
	cat, err := uc.repo.Load(ctx)
	if err != nil {
		return catalog.ModelSpec{}, err
	}
	return uc.pick(cat, task, budget)
}

func (uc *GatewayUseCase) pick(cat catalog.Catalog, task catalog.Task, budget catalog.Quality) (catalog.ModelSpec, error) {
	if task == "" {
		task = catalog.TaskChat
	}
	if budget == "" {
		budget = uc.policy.Budget()
	}
	return catalog.Select(cat, task, budget, uc.policy.SelectOptions())
}

// OpenChat 确定模型、拼装附件并建立上游流
//
// 未指定模型时按任务选择：有附件默认视觉任务，请求推理时默认推理任务。
// 指定的模型可以是目录中的别名。
func (uc *GatewayUseCase) OpenChat(ctx context.Context, in ChatInput) (*ChatSession, error) {
	cat, err := uc.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	model := strings.TrimSpace(in.Model)
	if model == "" {
		task := in.Task
		if task == "" {
			switch {
			case len(in.Attachments) > 0:
				task = catalog.TaskVision
			case in.Reasoning != nil:
				task = catalog.TaskReason
			}
		}
		spec, err := uc.pick(cat, task, in.Budget)
		if err != nil {
			return nil, err
		}
		model = spec.ID
	} else {
		model = catalog.ResolveID(model, cat)
	}

	req := types.ChatCompletionRequest{
		Model:       model,
		Messages:    uc.builder.Build(ctx, in.Messages, in.Attachments),
		MaxTokens:   in.MaxTokens,
		Reasoning:   in.Reasoning,
		Temperature: in.Temperature,
	}
	if in.ShowReason {
		req.IncludeReasoning = types.Bool(true)
	}

	stream, err := uc.client.Stream(ctx, req)
	if err != nil {
		uc.log.Warn("open stream failed", zap.String("model", model), zap.Error(err))
		return nil, err
	}
	uc.log.Info("chat stream opened",
		zap.String("model", model),
		zap.String("stream_id", stream.ID()),
		zap.Int("attachments", len(in.Attachments)))
	return &ChatSession{Stream: stream, Model: model}, nil
}
