package pagetranslate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// ErrEmptyTranslation 翻译服务返回了空字符串
var ErrEmptyTranslation = errors.New("empty translation")

// Translator 远程翻译服务
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// TranslatorFunc 函数形式的 Translator
type TranslatorFunc func(ctx context.Context, text, targetLang string) (string, error)

// Translate 实现 Translator
func (f TranslatorFunc) Translate(ctx context.Context, text, targetLang string) (string, error) {
	return f(ctx, text, targetLang)
}

// Pipeline 页面翻译流水线：收集 -> 分块 -> 翻译 -> 回写
type Pipeline struct {
	translator Translator
	chunker    *Chunker
	logger     *zap.Logger
	onChunk    func(ChunkResult)
}

// Option 流水线选项
type Option func(*Pipeline)

// WithMaxChunkChars 设置分块字符上限
func WithMaxChunkChars(n int) Option {
	return func(p *Pipeline) {
		p.chunker = NewChunker(n)
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithChunkCallback 每个分块处理完后回调，用于进度展示
func WithChunkCallback(fn func(ChunkResult)) Option {
	return func(p *Pipeline) {
		p.onChunk = fn
	}
}

// New 创建页面翻译流水线
func New(translator Translator, opts ...Option) *Pipeline {
	p := &Pipeline{
		translator: translator,
		chunker:    NewChunker(DefaultMaxChunkChars),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan 只做收集和分块，不调用翻译服务
func (p *Pipeline) Plan(root *html.Node) []Chunk {
	return p.chunker.Chunks(Collect(root).All())
}

// Run 翻译 root 下的所有可翻译文本。
//
// 分块严格按顺序处理，前一个分块写回后才发起下一个请求。单个分块失败只记录在
// 汇总里，节点保留原文。只有 context 被取消时才返回错误，此时已写回的节点保持译文。
func (p *Pipeline) Run(ctx context.Context, root *html.Node, targetLang string) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:      uuid.NewString(),
		TargetLang: targetLang,
		StartedAt:  time.Now(),
	}
	defer func() {
		summary.Duration = time.Since(summary.StartedAt)
	}()

	log := p.logger.With(zap.String("run_id", summary.RunID), zap.String("target", targetLang))

	chunks := p.Plan(root)
	if len(chunks) == 0 {
		log.Debug("没有可翻译的文本节点")
		return summary, nil
	}
	log.Debug("页面分块完成", zap.Int("chunks", len(chunks)), zap.Int("max_chars", p.chunker.MaxChars()))

	updater := NewUpdater()
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("page translation aborted after %d of %d chunks: %w", i, len(chunks), err)
		}

		result := p.translateChunk(ctx, i, chunk, targetLang)
		if result.OK() {
			updater.Apply(chunk, result.Translated)
		} else {
			log.Warn("分块翻译失败，保留原文",
				zap.Int("chunk", i),
				zap.Int("nodes", result.Nodes),
				zap.Int("chars", result.Chars),
				zap.Error(result.Err))
		}

		summary.Chunks = append(summary.Chunks, result)
		if p.onChunk != nil {
			p.onChunk(result)
		}
	}

	log.Info("页面翻译完成",
		zap.Int("chunks", summary.Total()),
		zap.Int("failed", summary.Failed()),
		zap.Int("chars", summary.Chars()),
		zap.Int("styled_elements", updater.Snapshots()))

	return summary, nil
}

func (p *Pipeline) translateChunk(ctx context.Context, index int, chunk Chunk, targetLang string) ChunkResult {
	start := time.Now()
	result := ChunkResult{
		Index: index,
		Nodes: len(chunk.Nodes),
		Chars: chunk.Len(),
	}

	translated, err := p.translator.Translate(ctx, chunk.Text, targetLang)
	result.Duration = time.Since(start)
	switch {
	case err != nil:
		result.Err = err
	case strings.TrimSpace(translated) == "":
		result.Err = ErrEmptyTranslation
	default:
		result.Translated = translated
	}
	return result
}
