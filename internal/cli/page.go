package cli

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-intento-translator/pkg/pagetranslate"
)

type pageOptions struct {
	to            string
	from          string
	maxChunkChars int
	progress      bool
}

func newPageCommand(root *rootOptions) *cobra.Command {
	opts := &pageOptions{}

	cmd := &cobra.Command{
		Use:   "page INPUT [OUTPUT]",
		Short: "翻译 HTML 页面",
		Long: `翻译 HTML 页面中的可见文本并写出新文件。

未指定 OUTPUT 时写到 INPUT 同目录下的 <name>.<lang>.html。
单个分块翻译失败时保留原文，其余分块继续处理。`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPage(cmd, root, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.to, "to", "", "目标语言 (默认使用配置 target_lang)")
	f.StringVar(&opts.from, "from", "", "源语言 (为空时自动识别)")
	f.IntVar(&opts.maxChunkChars, "max-chunk-chars", 0, "单个分块的最大字符数 (默认使用配置)")
	f.BoolVar(&opts.progress, "progress", false, "逐个输出分块结果")

	return cmd
}

func runPage(cmd *cobra.Command, root *rootOptions, opts *pageOptions, args []string) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if opts.maxChunkChars > 0 {
		cfg.MaxChunkChars = opts.maxChunkChars
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

	input := args[0]
	output := ""
	if len(args) > 1 {
		output = args[1]
	}

	w := cmd.OutOrStdout()
	var pipelineOpts []pagetranslate.Option
	if opts.progress || cfg.Verbose {
		pipelineOpts = append(pipelineOpts, pagetranslate.WithChunkCallback(func(r pagetranslate.ChunkResult) {
			printChunk(w, r)
		}))
	}

	summary, written, runErr := coordinator.TranslateFile(cmd.Context(), input, output, opts.from, opts.to, pipelineOpts...)
	if summary == nil {
		return runErr
	}

	printRunSummary(w, summary, written)

	if runErr != nil {
		log.Error("页面翻译中断", zap.Error(runErr))
		return runErr
	}
	if failed := summary.Failed(); failed > 0 {
		log.Warn("部分分块翻译失败", zap.String("run_id", summary.RunID), zap.Error(summary.Err()))
		warnColor.Fprintf(w, "%d 个分块翻译失败，已保留原文\n", failed)
	} else {
		successColor.Fprintln(w, "翻译完成")
	}
	return nil
}

func printChunk(w io.Writer, r pagetranslate.ChunkResult) {
	if r.OK() {
		successColor.Fprintf(w, "✓ chunk %d: %d nodes, %d chars, %s\n", r.Index, r.Nodes, r.Chars, r.Duration.Round(time.Millisecond))
		return
	}
	errorColor.Fprintf(w, "✗ chunk %d: %d nodes, %d chars: %v\n", r.Index, r.Nodes, r.Chars, r.Err)
}

func printRunSummary(w io.Writer, s *pagetranslate.RunSummary, output string) {
	tw := newTable(w, table.Row{"项", "值"})
	tw.AppendRow(table.Row{"Run ID", s.RunID})
	if output != "" {
		tw.AppendRow(table.Row{"输出文件", output})
	}
	tw.AppendRow(table.Row{"目标语言", s.TargetLang})
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"分块", s.Total()})
	tw.AppendRow(table.Row{"成功", s.Succeeded()})
	tw.AppendRow(table.Row{"失败", s.Failed()})
	tw.AppendRow(table.Row{"译文节点", s.TranslatedNodes()})
	tw.AppendRow(table.Row{"字符数", s.Chars()})
	tw.AppendRow(table.Row{"耗时", s.Duration.Round(time.Millisecond).String()})
	tw.Render()
}
