package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-intento-translator/internal/config"
	"github.com/nerdneilsfield/go-intento-translator/internal/logger"
	"github.com/nerdneilsfield/go-intento-translator/internal/translator"
)

// rootOptions 全局标志
type rootOptions struct {
	cfgFile string
	debug   bool
	verbose bool
}

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "translator",
		Short: "基于 Intento API 的网页翻译工具",
		Long: `基于 Intento API 的网页翻译工具。

页面中的可见文本按块提交翻译，译文就地写回 HTML，脚本和样式不受影响。
翻译后端默认为 Intento，可通过 backend: openai 切换到 OpenAI 兼容接口。

示例:
  translator translate -t "Hello world" --to es
  translator page index.html --to de
  translator providers --filter deepl
  translator serve --addr :5000`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "配置文件路径 (默认 $HOME/.intento.yaml)")
	pf.BoolVar(&opts.debug, "debug", false, "启用调试日志")
	pf.BoolVar(&opts.verbose, "verbose", false, "输出便于阅读的详细日志")

	rootCmd.AddCommand(
		newTranslateCommand(opts),
		newPageCommand(opts),
		newProvidersCommand(opts),
		newLanguagesCommand(opts),
		newRoutingCommand(opts),
		newServeCommand(opts),
		newCacheCommand(opts),
		newStatsCommand(opts),
	)

	return rootCmd
}

// loadConfig 加载配置并用命令行标志覆盖
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.cfgFile)
	if err != nil {
		return nil, err
	}
	if o.debug {
		cfg.Debug = true
	}
	if o.verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func (o *rootOptions) newLogger(cfg *config.Config) *zap.Logger {
	return logger.NewLoggerWithVerbose(cfg.Debug, cfg.Verbose)
}

// newCoordinator 校验配置并创建翻译协调器，调用方负责 Close
func (o *rootOptions) newCoordinator(cfg *config.Config, log *zap.Logger) (*translator.TranslationCoordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	coordinator, err := translator.NewTranslationCoordinator(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create translator: %w", err)
	}
	return coordinator, nil
}

// closeCoordinator 保存统计数据，失败只记录日志
func closeCoordinator(c *translator.TranslationCoordinator, log *zap.Logger) {
	if err := c.Close(); err != nil {
		log.Warn("保存统计数据失败", zap.Error(err))
	}
}
