package translator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-intento-translator/internal/config"
	"github.com/nerdneilsfield/go-intento-translator/pkg/pagetranslate"
	"github.com/nerdneilsfield/go-intento-translator/pkg/providers"
	"github.com/nerdneilsfield/go-intento-translator/pkg/providers/breaker"
	"github.com/nerdneilsfield/go-intento-translator/pkg/providers/factory"
	"github.com/nerdneilsfield/go-intento-translator/pkg/providers/stats"
	"github.com/nerdneilsfield/go-intento-translator/pkg/translation"
)

// StatsFileName 请求统计文件名，位于缓存目录下
const StatsFileName = "provider-stats.json"

// ErrNoText 没有待翻译的文本
var ErrNoText = errors.New("no text provided")

// TextRequest 纯文本翻译请求
type TextRequest struct {
	Texts      []string
	SourceLang string
	TargetLang string
	// Provider / Routing 为空时使用配置
	Provider string
	Routing  string
	Sync     bool
}

// TextResult 纯文本翻译结果
type TextResult struct {
	Translations []string      `json:"translations"`
	Provider     string        `json:"provider"`
	Duration     time.Duration `json:"duration"`
}

// PageResult 页面翻译结果
type PageResult struct {
	HTML    string
	Summary *pagetranslate.RunSummary
}

// TranslationCoordinator 把配置、翻译后端、缓存和页面流水线组装在一起
type TranslationCoordinator struct {
	config       *config.Config
	provider     providers.Provider
	statsManager *stats.StatsManager
	cache        translation.Cache
	glossary     *config.FixedTranslations
	logger       *zap.Logger
}

// NewTranslationCoordinator 根据配置创建翻译协调器
func NewTranslationCoordinator(cfg *config.Config, logger *zap.Logger) (*TranslationCoordinator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	provider, err := factory.CreateProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	return NewTranslationCoordinatorWithProvider(cfg, logger, provider)
}

// NewTranslationCoordinatorWithProvider 使用指定的翻译后端创建协调器
func NewTranslationCoordinatorWithProvider(cfg *config.Config, logger *zap.Logger, provider providers.Provider) (*TranslationCoordinator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var statsPath string
	if cfg.CacheDir != "" {
		statsPath = filepath.Join(cfg.CacheDir, StatsFileName)
	}
	statsManager := stats.NewStatsManager(statsPath, logger)
	if err := statsManager.Load(); err != nil {
		logger.Warn("加载统计数据失败", zap.Error(err))
	}

	cache, err := translation.NewCache(cfg.UseCache, cfg.CacheDir)
	if err != nil {
		logger.Warn("初始化翻译缓存失败，禁用缓存", zap.Error(err))
		cache = nil
	}

	var glossary *config.FixedTranslations
	if cfg.FixedTranslations != "" {
		glossary, err = config.LoadFixedTranslations(cfg.FixedTranslations)
		if err != nil {
			return nil, err
		}
		logger.Info("已加载固定译文",
			zap.String("path", cfg.FixedTranslations),
			zap.Int("entries", len(glossary.Translations)))
	}

	if cfg.BreakerFailures > 0 {
		provider = breaker.New(provider, breaker.Config{
			MaxFailures: uint32(cfg.BreakerFailures),
			OpenTimeout: cfg.BreakerTimeout,
		}, logger)
	}

	return &TranslationCoordinator{
		config:       cfg,
		provider:     stats.NewStatisticsMiddleware(provider, statsManager),
		statsManager: statsManager,
		cache:        cache,
		glossary:     glossary,
		logger:       logger,
	}, nil
}

// ProviderName 当前翻译后端名称
func (c *TranslationCoordinator) ProviderName() string {
	return c.provider.GetName()
}

// TranslateTexts 翻译一组文本，所有文本一次提交
func (c *TranslationCoordinator) TranslateTexts(ctx context.Context, req TextRequest) (*TextResult, error) {
	texts := make([]string, 0, len(req.Texts))
	for _, t := range req.Texts {
		if strings.TrimSpace(t) != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		return nil, ErrNoText
	}

	source, target, err := c.languages(req.SourceLang, req.TargetLang)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("starting text translation",
		zap.Int("texts", len(texts)),
		zap.String("source", source),
		zap.String("target", target),
		zap.Bool("sync", req.Sync))

	resp, err := c.provider.TranslateBatch(ctx, &providers.BatchRequest{
		Texts:          texts,
		SourceLanguage: source,
		TargetLanguage: target,
		Sync:           req.Sync,
		Provider:       req.Provider,
		Routing:        req.Routing,
	})
	if err != nil {
		return nil, err
	}

	return &TextResult{
		Translations: resp.Texts,
		Provider:     resp.ProviderName,
		Duration:     resp.Duration,
	}, nil
}

// Pipeline 创建页面翻译流水线，翻译函数依次经过固定译文、缓存和翻译后端
func (c *TranslationCoordinator) Pipeline(sourceLang string, opts ...pagetranslate.Option) *pagetranslate.Pipeline {
	base := providers.NewTextTranslator(c.provider, sourceLang)
	cached := translation.NewCachedTranslator(base,
		translation.WithCache(c.cache),
		translation.WithGlossary(c.glossary),
		translation.WithCacheScope(c.cacheScope(), sourceLang),
		translation.WithCacheLogger(c.logger),
	)

	all := append([]pagetranslate.Option{
		pagetranslate.WithMaxChunkChars(c.config.MaxChunkChars),
		pagetranslate.WithLogger(c.logger),
	}, opts...)
	return pagetranslate.New(cached, all...)
}

// TranslateHTML 翻译一段 HTML（完整页面或片段）
func (c *TranslationCoordinator) TranslateHTML(ctx context.Context, htmlText, sourceLang, targetLang string, opts ...pagetranslate.Option) (*PageResult, error) {
	source, target, err := c.languages(sourceLang, targetLang)
	if err != nil {
		return nil, err
	}

	out, summary, err := c.Pipeline(source, opts...).TranslateHTML(ctx, strings.NewReader(htmlText), target)
	if summary == nil {
		return nil, err
	}
	return &PageResult{HTML: out, Summary: summary}, err
}

// TranslateFile 翻译 HTML 文件，outputPath 为空时写到 <name>.<lang>.html
func (c *TranslationCoordinator) TranslateFile(ctx context.Context, inputPath, outputPath, sourceLang, targetLang string, opts ...pagetranslate.Option) (*pagetranslate.RunSummary, string, error) {
	content, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read input file: %w", err)
	}
	if outputPath == "" {
		outputPath = DefaultOutputPath(inputPath, targetLang)
	}

	c.logger.Info("starting file translation",
		zap.String("inputPath", inputPath),
		zap.String("outputPath", outputPath),
		zap.String("target", targetLang))

	result, runErr := c.TranslateHTML(ctx, string(bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))), sourceLang, targetLang, opts...)
	if result == nil {
		return nil, "", runErr
	}

	if err := os.WriteFile(outputPath, []byte(result.HTML), 0o644); err != nil {
		return result.Summary, "", fmt.Errorf("failed to write output file: %w", err)
	}

	c.logger.Info("file translation completed",
		zap.String("runID", result.Summary.RunID),
		zap.Int("chunks", result.Summary.Total()),
		zap.Int("failed", result.Summary.Failed()),
		zap.Duration("duration", result.Summary.Duration))

	return result.Summary, outputPath, runErr
}

// Stats 翻译后端请求统计
func (c *TranslationCoordinator) Stats() []stats.ProviderStats {
	return c.statsManager.Snapshot()
}

// CacheStats 缓存统计，未启用缓存时返回 false
func (c *TranslationCoordinator) CacheStats() (translation.CacheStats, bool) {
	if c.cache == nil {
		return translation.CacheStats{}, false
	}
	return c.cache.Stats(), true
}

// ClearCache 清空翻译缓存和请求统计
func (c *TranslationCoordinator) ClearCache() error {
	if c.cache != nil {
		if err := c.cache.Clear(); err != nil {
			return err
		}
	}
	return c.statsManager.Reset()
}

// Close 保存统计数据
func (c *TranslationCoordinator) Close() error {
	return c.statsManager.Save()
}

func (c *TranslationCoordinator) languages(source, target string) (string, string, error) {
	if target == "" {
		target = c.config.TargetLang
	}
	if source == "" {
		source = c.config.SourceLang
	}

	target, err := config.NormalizeLanguage(target)
	if err != nil {
		return "", "", err
	}
	if target == "" {
		return "", "", errors.New("target language is required")
	}
	source, err = config.NormalizeLanguage(source)
	if err != nil {
		return "", "", err
	}
	return source, target, nil
}

// cacheScope 缓存按后端和服务选择区分
func (c *TranslationCoordinator) cacheScope() string {
	scope := c.provider.GetName()
	switch {
	case c.config.Backend == config.BackendOpenAI:
		scope += ":" + c.config.OpenAI.Model
	case c.config.Provider != "":
		scope += ":" + c.config.Provider
	case c.config.Routing != "":
		scope += ":routing:" + c.config.Routing
	}
	return scope
}

// DefaultOutputPath page.html -> page.es.html
func DefaultOutputPath(inputPath, targetLang string) string {
	ext := filepath.Ext(inputPath)
	if ext == "" {
		ext = ".html"
	}
	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "." + targetLang + ext
}
