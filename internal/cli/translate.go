package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-intento-translator/internal/translator"
	"github.com/nerdneilsfield/go-intento-translator/pkg/providers/intento"
)

const (
	formatText = "text"
	formatJSON = "json"
)

type translateOptions struct {
	texts    []string
	to       string
	from     string
	provider string
	routing  string
	category string
	sync     bool
	trace    bool
	format   string
}

// translateOutput --format json 的输出
type translateOutput struct {
	Provider    string `json:"provider"`
	Translation string `json:"translation"`
	Duration    string `json:"duration"`
}

func newTranslateCommand(root *rootOptions) *cobra.Command {
	opts := &translateOptions{}

	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "翻译一段或多段文本",
		Long: `翻译一段或多段文本。多段文本在一次请求中提交。

示例:
  translator translate -t "Hello" -t "Good morning" --to fr
  translator translate "Hello world" --to de --provider ai.text.translate.deepl.api
  translator translate -t "Hello" --to es --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, root, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.texts, "text", "t", nil, "待翻译文本，可重复")
	f.StringVar(&opts.to, "to", "", "目标语言 (默认使用配置 target_lang)")
	f.StringVar(&opts.from, "from", "", "源语言 (为空时自动识别)")
	f.StringVarP(&opts.provider, "provider", "p", "", "指定 Intento 翻译提供商")
	f.StringVarP(&opts.routing, "routing", "r", "", "指定 Smart Routing 配置")
	f.StringVarP(&opts.category, "category", "c", "", "内容分类")
	f.BoolVarP(&opts.sync, "sync", "s", false, "使用同步翻译 (适合短文本)")
	f.BoolVar(&opts.trace, "trace", false, "启用 Intento trace 模式")
	f.StringVar(&opts.format, "format", formatText, "输出格式 (text, json)")

	return cmd
}

func runTranslate(cmd *cobra.Command, root *rootOptions, opts *translateOptions, args []string) error {
	if opts.format != formatText && opts.format != formatJSON {
		return fmt.Errorf("unsupported format %q (want %s or %s)", opts.format, formatText, formatJSON)
	}

	texts := append(append([]string{}, opts.texts...), args...)
	if len(texts) == 0 {
		return errors.New("no text to translate: use --text or pass text as arguments")
	}

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if opts.category != "" {
		cfg.Category = opts.category
	}
	if opts.trace {
		cfg.Trace = true
	}

	log := root.newLogger(cfg)
	defer func() {
		_ = log.Sync()
	}()

	coordinator, err := root.newCoordinator(cfg, log)
	if err != nil {
		return err
	}
	defer closeCoordinator(coordinator, log)

	result, err := coordinator.TranslateTexts(cmd.Context(), translator.TextRequest{
		Texts:      texts,
		SourceLang: opts.from,
		TargetLang: opts.to,
		Provider:   opts.provider,
		Routing:    opts.routing,
		Sync:       opts.sync || cfg.UseSync,
	})
	if err != nil {
		log.Error("翻译失败", zap.Error(err))
		return fmt.Errorf("translation failed: %w", err)
	}

	out := translateOutput{
		Provider:    result.Provider,
		Translation: strings.Join(result.Translations, "\n"),
		Duration:    intento.FormatDuration(result.Duration),
	}
	if out.Provider == "" {
		out.Provider = coordinator.ProviderName()
	}

	w := cmd.OutOrStdout()
	if opts.format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "Provider: %s\n", out.Provider)
	fmt.Fprintf(w, "Translation: %s\n", out.Translation)
	fmt.Fprintf(w, "Duration: %s\n", out.Duration)
	return nil
}
