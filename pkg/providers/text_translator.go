package providers

import (
	"context"
	"errors"
)

// TextTranslator 把 TranslationProvider 适配成 (text, targetLang) -> text 的形式，
// 供页面翻译流水线使用。
type TextTranslator struct {
	provider       TranslationProvider
	sourceLanguage string
}

// NewTextTranslator 创建适配器，sourceLanguage 为空时由后端自动识别
func NewTextTranslator(provider TranslationProvider, sourceLanguage string) *TextTranslator {
	return &TextTranslator{
		provider:       provider,
		sourceLanguage: sourceLanguage,
	}
}

// Translate 翻译单段文本
func (t *TextTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	resp, err := t.provider.Translate(ctx, &ProviderRequest{
		Text:           text,
		SourceLanguage: t.sourceLanguage,
		TargetLanguage: targetLang,
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("provider returned no response")
	}
	return resp.Text, nil
}
