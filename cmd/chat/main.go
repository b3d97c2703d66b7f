package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/catalog"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/content"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/openrouter"
	"github.com/lk2023060901/llm-gateway-client/internal/conf"
	"github.com/lk2023060901/llm-gateway-client/internal/data"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
)

var (
	cfgFile   string
	model     string
	task      string
	budget    string
	system    string
	reasoning bool
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat through the OpenRouter gateway",
	Long: `Interactive terminal chat. Replies are streamed as they arrive.

Ctrl-C stops the reply in progress. Type /help for commands.`,
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default: defaults + environment)")
	rootCmd.Flags().StringVar(&model, "model", "", "model ID or label (default: selected from the catalog)")
	rootCmd.Flags().StringVar(&task, "task", string(catalog.TaskChat), "task used for model selection")
	rootCmd.Flags().StringVar(&budget, "budget", "", "quality budget: low, mid or high")
	rootCmd.Flags().StringVar(&system, "system", "", "system prompt")
	rootCmd.Flags().BoolVar(&reasoning, "reasoning", false, "show reasoning text")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := conf.Load(cfgFile)
	if err != nil {
		return err
	}
	// 控制台日志写 stderr，不干扰回复输出
	cfg.Log.Level = "warn"
	if verbose {
		cfg.Log.Level = "debug"
	}
	log, err := logger.New(&cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	overrides, err := data.LoadOverrides(cfg.Catalog.OverridesFile)
	if err != nil {
		return err
	}
	conflict, err := catalog.ParseConflict(cfg.Catalog.Conflict)
	if err != nil {
		return err
	}
	cat, err := catalog.Merge(catalog.Default(), overrides, conflict)
	if err != nil {
		return err
	}

	cc := cfg.ClientConfig()
	cc.APIKeyFunc = promptKey(cc.APIKeyFunc)
	client, err := openrouter.New(cc, log)
	if err != nil {
		return err
	}
	defer client.Close()

	if budget == "" {
		budget = string(cfg.Budget())
	}
	id := model
	if id == "" {
		id = cfg.Gateway.Model
	}
	if id == "" {
		spec, err := catalog.Select(cat, catalog.Task(task), catalog.Quality(budget), cfg.SelectOptions())
		if err != nil {
			return fmt.Errorf("select model: %w", err)
		}
		id = spec.ID
	}

	s := newSession(client, content.NewMessageBuilder(localResolver, cfg.Attachments.MaxInlineBytes, log), cat, log)
	s.out = cmd.OutOrStdout()
	s.setModel(id)
	s.reasoning = reasoning
	s.system = system
	return s.loop(context.Background(), cmd.InOrStdin())
}

// localResolver 把附件路径直接作为本地文件读取
var localResolver = content.ResolverFunc(func(_ context.Context, att content.Attachment) (content.Source, error) {
	if _, err := os.Stat(att.Rel); err != nil {
		return nil, nil
	}
	return content.PathSource(att.Rel), nil
})

// promptKey 配置中没有 API Key 时，在第一次请求前从终端读取一次
func promptKey(configured func() string) func() string {
	var (
		once sync.Once
		key  string
	)
	return func() string {
		if configured != nil {
			if k := configured(); k != "" {
				return k
			}
		}
		once.Do(func() {
			fd := int(os.Stdin.Fd())
			if !term.IsTerminal(fd) {
				return
			}
			fmt.Fprint(os.Stderr, "OpenRouter API key: ")
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			if err == nil {
				key = strings.TrimSpace(string(b))
			}
		})
		return key
	}
}
