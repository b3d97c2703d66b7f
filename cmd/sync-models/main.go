package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/catalog"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/openrouter"
	"github.com/lk2023060901/llm-gateway-client/internal/conf"
	"github.com/lk2023060901/llm-gateway-client/internal/data"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "config file path")
	refresh    = flag.Bool("refresh", false, "ignore the cached remote listing")
	dryRun     = flag.Bool("dry-run", false, "print the merged catalog instead of writing it")
	exportFile = flag.String("export", "", "also write the merged catalog to this file (.json or .yaml)")
)

func main() {
	flag.Parse()
	fmt.Println("🚀 模型目录同步工具启动...")
	fmt.Println()

	cfg, err := conf.Load(*configFile)
	if err != nil {
		log.Fatalf("❌ 加载配置失败: %v", err)
	}

	zl, err := logger.New(&cfg.Log)
	if err != nil {
		log.Fatalf("❌ 初始化日志失败: %v", err)
	}
	defer zl.Sync()

	ctx := context.Background()
	d, cleanup, err := data.NewData(ctx, cfg, zl)
	if err != nil {
		log.Fatalf("❌ 初始化数据层失败: %v", err)
	}
	defer cleanup()

	client, err := openrouter.New(cfg.ClientConfig(), zl)
	if err != nil {
		log.Fatalf("❌ 创建网关客户端失败: %v", err)
	}
	defer client.Close()

	fetcher := catalog.NewFetcher(client, d.ListingCache(), zl)
	if *refresh {
		if err := fetcher.Invalidate(ctx); err != nil {
			zl.Warn("invalidate listing cache failed", zap.Error(err))
		}
	}

	start := time.Now()
	remote, err := fetcher.Fetch(ctx, cfg.Catalog.ListingTTL)
	if err != nil {
		log.Fatalf("❌ 拉取远端模型列表失败: %v", err)
	}
	fmt.Printf("📋 远端模型 %d 个 (耗时: %.2fs)\n", len(remote), time.Since(start).Seconds())

	// 内置目录的能力描述比远端列表可信，冲突时保留内置
	merged, err := catalog.Merge(catalog.Default(), remote, catalog.PreferBase)
	if err != nil {
		log.Fatalf("❌ 合并远端列表失败: %v", err)
	}

	overrides, err := data.LoadOverrides(cfg.Catalog.OverridesFile)
	if err != nil {
		log.Fatalf("❌ 读取覆盖文件失败: %v", err)
	}
	if len(overrides) > 0 {
		conflict, err := catalog.ParseConflict(cfg.Catalog.Conflict)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		if merged, err = catalog.Merge(merged, overrides, conflict); err != nil {
			log.Fatalf("❌ 合并覆盖文件失败: %v", err)
		}
		fmt.Printf("📝 应用覆盖 %d 条 (%s)\n", len(overrides), conflict)
	}

	if *exportFile != "" {
		if err := export(*exportFile, merged); err != nil {
			log.Fatalf("❌ 导出失败: %v", err)
		}
		fmt.Printf("💾 已导出到 %s\n", *exportFile)
	}

	if *dryRun {
		out, err := catalog.Export(merged)
		if err != nil {
			log.Fatalf("❌ 导出失败: %v", err)
		}
		fmt.Println(out)
		return
	}

	store, err := d.Store()
	if err != nil {
		log.Fatalf("❌ 打开模型表失败: %v", err)
	}
	if store == nil {
		log.Fatalf("❌ 未启用数据库 (database.enabled=false)，可使用 -dry-run 或 -export")
	}
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("❌ 建表失败: %v", err)
	}

	before, err := store.List(ctx)
	if err != nil {
		log.Fatalf("❌ 读取模型表失败: %v", err)
	}
	n, err := store.Seed(ctx, merged)
	if err != nil {
		log.Fatalf("❌ 写入模型表失败: %v", err)
	}

	known := make(map[string]bool, len(before))
	for _, m := range before {
		known[m.ID] = true
	}
	var added []string
	for _, m := range merged {
		if !known[m.ID] {
			added = append(added, m.ID)
		}
	}

	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("✅ 同步完成: 表 %s\n", store.Table())
	fmt.Printf("   • 写入模型: %d\n", n)
	fmt.Printf("   • 新增模型: %d\n", len(added))
	for i, id := range added {
		if i >= 10 {
			fmt.Printf("   ... 还有 %d 个模型\n", len(added)-10)
			break
		}
		fmt.Printf("   %d. %s\n", i+1, id)
	}
}

func export(path string, cat catalog.Catalog) error {
	var (
		out []byte
		err error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		out, err = catalog.ExportYAML(cat)
	} else {
		var s string
		s, err = catalog.Export(cat)
		out = []byte(s + "\n")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
