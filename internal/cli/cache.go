package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-intento-translator/pkg/translation"
)

func newCacheCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "管理翻译缓存",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "显示翻译缓存统计",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, dir, err := openCache(root)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if cache == nil {
				warnColor.Fprintln(w, "缓存未启用")
				return nil
			}

			st := cache.Stats()
			titleColor.Fprintln(w, "Cache Statistics")
			tw := newTable(w, nil)
			tw.AppendRow(table.Row{"缓存目录", dir})
			tw.AppendRow(table.Row{"条目数", st.Entries})
			tw.AppendRow(table.Row{"占用空间", formatBytes(st.Bytes)})
			tw.AppendRow(table.Row{"最近更新", formatTime(st.LastUpdated)})
			tw.Render()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "清空翻译缓存",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, dir, err := openCache(root)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if cache == nil {
				warnColor.Fprintln(w, "缓存未启用")
				return nil
			}
			if err := cache.Clear(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			successColor.Fprintf(w, "已清空缓存: %s\n", dir)
			return nil
		},
	})

	return cmd
}

// openCache 按配置打开缓存，不需要 API 密钥
func openCache(root *rootOptions) (translation.Cache, string, error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, "", err
	}
	if !cfg.UseCache || cfg.CacheDir == "" {
		return nil, cfg.CacheDir, nil
	}
	cache, err := translation.NewCache(true, cfg.CacheDir)
	if err != nil {
		return nil, "", err
	}
	return cache, cfg.CacheDir, nil
}
