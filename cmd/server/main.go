package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/catalog"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/content"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/openrouter"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/transcribe"
	"github.com/lk2023060901/llm-gateway-client/internal/conf"
	"github.com/lk2023060901/llm-gateway-client/internal/data"
	"github.com/lk2023060901/llm-gateway-client/internal/gateway/biz"
	"github.com/lk2023060901/llm-gateway-client/internal/gateway/service"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/sse"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/workerpool"
	"github.com/lk2023060901/llm-gateway-client/internal/server"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// Load configuration
	config, err := conf.Load(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&config.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("config loaded successfully", zap.String("file", *configFile))

	ctx := context.Background()

	// Initialize data layer
	d, cleanup, err := data.NewData(ctx, config, log)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	store, err := d.Store()
	if err != nil {
		log.Fatal("failed to open catalog store", zap.Error(err))
	}
	if store != nil {
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatal("failed to migrate catalog table", zap.Error(err))
		}
		if err := catalog.Ensure(ctx, store.Upserter(), catalog.Default()); err != nil {
			log.Fatal("failed to seed catalog", zap.Error(err))
		}
	}

	overrides, err := data.LoadOverrides(config.Catalog.OverridesFile)
	if err != nil {
		log.Fatal("failed to load catalog overrides", zap.Error(err))
	}
	conflict, err := catalog.ParseConflict(config.Catalog.Conflict)
	if err != nil {
		log.Fatal("invalid catalog conflict policy", zap.Error(err))
	}
	catalogRepo := data.NewCatalogRepo(store, overrides, conflict, log)

	// Gateway client
	client, err := openrouter.New(config.ClientConfig(), log)
	if err != nil {
		log.Fatal("failed to create gateway client", zap.Error(err))
	}
	defer client.Close()

	builder := content.NewMessageBuilder(d.Resolver(), config.Attachments.MaxInlineBytes, log)
	if config.Attachments.Workers > 1 {
		pool, err := workerpool.New(&workerpool.Config{Workers: config.Attachments.Workers}, log.Logger)
		if err != nil {
			log.Fatal("failed to create attachment worker pool", zap.Error(err))
		}
		defer pool.Shutdown()
		builder.WithWorkers(pool)
	}

	gatewayUseCase := biz.NewGatewayUseCase(
		catalogRepo,
		client,
		catalog.NewFetcher(client, d.ListingCache(), log),
		builder,
		config,
		config.Catalog.ListingTTL,
		log,
	)

	target := service.AttachmentTarget{Root: config.Attachments.Root}
	if d.MinIO != nil {
		target = service.AttachmentTarget{Uploader: d.MinIO, Bucket: config.MinIO.Bucket, Prefix: config.MinIO.Prefix}
	}
	hub := sse.NewHub()
	gatewayService := service.NewGatewayService(gatewayUseCase, service.Options{
		Hub:         hub,
		Transcriber: transcribe.New(config.TranscribeClientConfig(), log),
		Attachments: target,
		Heartbeat:   config.Server.Heartbeat,
	}, log)

	httpServer := server.NewHTTPServer(config, log, gatewayService)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...", zap.Int("stopped_streams", hub.StopAll()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
