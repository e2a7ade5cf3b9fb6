package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-intento-translator/internal/translator"
	"github.com/nerdneilsfield/go-intento-translator/pkg/pagetranslate"
)

//go:embed templates/index.html
var templateFS embed.FS

const (
	maxBodyBytes    = 10 << 20
	shutdownTimeout = 10 * time.Second
)

// Translator 服务端依赖的翻译能力，由 translator.TranslationCoordinator 实现
type Translator interface {
	TranslateTexts(ctx context.Context, req translator.TextRequest) (*translator.TextResult, error)
	TranslateHTML(ctx context.Context, htmlText, sourceLang, targetLang string, opts ...pagetranslate.Option) (*translator.PageResult, error)
	ProviderName() string
}

// Options 服务端选项
type Options struct {
	// DefaultTargetLang 请求未指定目标语言时使用
	DefaultTargetLang string
	// DefaultSync 请求未指定 use_sync 时使用
	DefaultSync bool
}

// Server 翻译 Web 服务
type Server struct {
	translator Translator
	options    Options
	index      *template.Template
	logger     *zap.Logger
	router     chi.Router
}

// New 创建服务
func New(tr Translator, options Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.DefaultTargetLang == "" {
		options.DefaultTargetLang = "es"
	}

	s := &Server{
		translator: tr,
		options:    options,
		index:      template.Must(template.ParseFS(templateFS, "templates/index.html")),
		logger:     logger,
	}
	s.router = s.routes()
	return s
}

// Handler 返回 HTTP 处理器
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Post("/translate", s.handleTranslate)
	r.Post("/translate/page", s.handleTranslatePage)
	r.Route("/api", func(r chi.Router) {
		r.Post("/message", s.handleMessage)
	})

	return r
}

// ListenAndServe 启动服务，ctx 取消后优雅关闭
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Web 服务已启动", zap.String("addr", addr), zap.String("provider", s.translator.ProviderName()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("正在关闭 Web 服务")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
