package translation

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Translator 与页面翻译流水线相同的翻译函数签名
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Glossary 固定译文查找
type Glossary interface {
	Lookup(text, targetLang string) (string, bool)
}

// CachedTranslator 依次查找固定译文、缓存，未命中再调用下游翻译器
type CachedTranslator struct {
	next     Translator
	cache    Cache
	glossary Glossary
	provider string
	source   string
	logger   *zap.Logger
}

// CachedOption 配置 CachedTranslator
type CachedOption func(*CachedTranslator)

// WithCache 设置缓存，nil 表示不缓存
func WithCache(cache Cache) CachedOption {
	return func(t *CachedTranslator) { t.cache = cache }
}

// WithGlossary 设置固定译文
func WithGlossary(g Glossary) CachedOption {
	return func(t *CachedTranslator) { t.glossary = g }
}

// WithCacheScope 缓存 key 中的后端标识和源语言
func WithCacheScope(provider, sourceLang string) CachedOption {
	return func(t *CachedTranslator) {
		t.provider = provider
		t.source = sourceLang
	}
}

// WithCacheLogger 设置日志
func WithCacheLogger(logger *zap.Logger) CachedOption {
	return func(t *CachedTranslator) { t.logger = logger }
}

// NewCachedTranslator 包装下游翻译器
func NewCachedTranslator(next Translator, opts ...CachedOption) *CachedTranslator {
	t := &CachedTranslator{
		next:   next,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate 翻译文本
func (t *CachedTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if t.glossary != nil {
		if fixed, ok := t.glossary.Lookup(text, targetLang); ok {
			t.logger.Debug("使用固定译文", zap.String("text", text))
			return fixed, nil
		}
	}

	var key string
	if t.cache != nil {
		key = GenerateCacheKey(KeyComponents{
			Provider:   t.provider,
			SourceLang: t.source,
			TargetLang: targetLang,
			Text:       text,
		})
		if cached, ok := t.cache.Get(key); ok {
			t.logger.Debug("命中翻译缓存", zap.String("key", key))
			return cached, nil
		}
	}

	translated, err := t.next.Translate(ctx, text, targetLang)
	if err != nil {
		return "", err
	}

	if t.cache != nil && strings.TrimSpace(translated) != "" {
		if err := t.cache.Set(key, Entry{
			Value:      translated,
			Source:     text,
			TargetLang: targetLang,
			Provider:   t.provider,
		}); err != nil {
			t.logger.Warn("写入翻译缓存失败", zap.Error(err))
		}
	}
	return translated, nil
}
