package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-intento-translator/internal/translator"
	"github.com/nerdneilsfield/go-intento-translator/pkg/providers/stats"
)

func newStatsCommand(root *rootOptions) *cobra.Command {
	var (
		format string
		reset  bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "显示翻译后端的请求统计",
		Long: `显示翻译后端的请求统计：请求数、成功率、延迟和错误类型。

示例:
  translator stats
  translator stats --format json
  translator stats --reset`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			log := root.newLogger(cfg)
			defer func() {
				_ = log.Sync()
			}()

			sm := stats.NewStatsManager(filepath.Join(cfg.CacheDir, translator.StatsFileName), log)
			w := cmd.OutOrStdout()

			if reset {
				if err := sm.Reset(); err != nil {
					return err
				}
				successColor.Fprintln(w, "统计数据已重置")
				return nil
			}

			if err := sm.Load(); err != nil {
				return err
			}
			snapshot := sm.Snapshot()

			switch format {
			case formatJSON:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(snapshot)
			case "table":
			default:
				return fmt.Errorf("unsupported format %q (want table or json)", format)
			}

			if len(snapshot) == 0 {
				fmt.Fprintln(w, "暂无统计数据")
				return nil
			}

			titleColor.Fprintln(w, "Provider Statistics")
			tw := newTable(w, table.Row{"后端", "请求", "成功", "失败", "成功率", "平均延迟", "最大延迟", "字符数", "错误类型", "最近请求"})
			for _, ps := range snapshot {
				tw.AppendRow(table.Row{
					ps.Provider,
					ps.Requests,
					ps.Successes,
					ps.Failures,
					fmt.Sprintf("%.1f%%", ps.SuccessRate()),
					ps.AverageLatency().Round(time.Millisecond).String(),
					ps.MaxLatency.Round(time.Millisecond).String(),
					ps.Chars,
					formatErrorTypes(ps.ErrorTypes),
					formatTime(ps.LastRequest),
				})
			}
			tw.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "输出格式 (table, json)")
	cmd.Flags().BoolVar(&reset, "reset", false, "清空统计数据")
	return cmd
}

func formatErrorTypes(m map[string]int64) string {
	if len(m) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, ", ")
}
