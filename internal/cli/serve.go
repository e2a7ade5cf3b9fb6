package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-intento-translator/internal/server"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 Web 翻译服务",
		Long: `启动 Web 翻译服务，提供网页表单、JSON 翻译接口和浏览器扩展消息接口。

接口:
  GET  /                 翻译表单
  POST /translate        {text, target_lang, source_lang, use_sync}
  POST /translate/page   {html, source_lang, target_lang}
  POST /api/message      {action: "translate", sourceLang, targetLang, html}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ServerAddr = addr
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

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(coordinator, server.Options{
				DefaultTargetLang: cfg.TargetLang,
				DefaultSync:       cfg.UseSync,
			}, log)
			return srv.ListenAndServe(ctx, cfg.ServerAddr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "监听地址 (默认使用配置 server_addr)")
	return cmd
}
