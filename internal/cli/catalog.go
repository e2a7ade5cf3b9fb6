package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-intento-translator/pkg/providers/factory"
	"github.com/nerdneilsfield/go-intento-translator/pkg/providers/intento"
)

const catalogTimeout = 30 * time.Second

// withIntento 创建 Intento 客户端并执行目录查询
func withIntento(cmd *cobra.Command, root *rootOptions, fn func(ctx context.Context, p *intento.Provider) error) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	p, err := factory.CreateIntento(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), catalogTimeout)
	defer cancel()
	return fn(ctx, p)
}

func newProvidersCommand(root *rootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "列出 Intento 可用的翻译提供商",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIntento(cmd, root, func(ctx context.Context, p *intento.Provider) error {
				list, err := p.ListProviders(ctx)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				titleColor.Fprintln(w, "Available Translation Providers")
				tw := newTable(w, table.Row{"ID", "Name", "Vendor", "Description"})
				for _, info := range list {
					if !matchesFilter(filter, info.ID, info.Name, info.Vendor) {
						continue
					}
					tw.AppendRow(table.Row{info.ID, info.Name, info.Vendor, info.Description})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "按 ID、名称或厂商模糊过滤")
	return cmd
}

func newLanguagesCommand(root *rootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "列出支持的语言",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIntento(cmd, root, func(ctx context.Context, p *intento.Provider) error {
				list, err := p.ListLanguages(ctx)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				titleColor.Fprintln(w, "Supported Languages")
				tw := newTable(w, table.Row{"Code", "Name"})
				for _, lang := range list {
					if !matchesFilter(filter, lang.IntentoCode, lang.ISOName) {
						continue
					}
					tw.AppendRow(table.Row{lang.IntentoCode, lang.ISOName})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "按代码或名称模糊过滤")
	return cmd
}

func newRoutingCommand(root *rootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "routing [PROFILE]",
		Short: "列出 Smart Routing 配置，或查看单个配置详情",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIntento(cmd, root, func(ctx context.Context, p *intento.Provider) error {
				w := cmd.OutOrStdout()

				if len(args) == 1 {
					raw, err := p.GetRoutingProfile(ctx, args[0])
					if err != nil {
						return err
					}
					var pretty bytes.Buffer
					if err := json.Indent(&pretty, raw, "", "  "); err != nil {
						return fmt.Errorf("failed to format routing profile: %w", err)
					}
					titleColor.Fprintf(w, "Details for Routing Profile: %s\n", args[0])
					fmt.Fprintln(w, pretty.String())
					return nil
				}

				list, err := p.ListRoutingProfiles(ctx)
				if err != nil {
					return err
				}
				titleColor.Fprintln(w, "Available Smart Routing Profiles")
				tw := newTable(w, table.Row{"Name", "Description", "Public", "Active"})
				for _, profile := range list {
					if !matchesFilter(filter, profile.Name, profile.Description) {
						continue
					}
					tw.AppendRow(table.Row{profile.Name, profile.Description, yesNo(profile.IsPublic), yesNo(profile.IsActive)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "按名称或描述模糊过滤")
	return cmd
}
