package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// FixedTranslations 固定译文表，原文完全匹配时直接使用，不调用翻译服务
type FixedTranslations struct {
	SourceLang   string            `toml:"source_lang"`
	TargetLang   string            `toml:"target_lang"`
	Translations map[string]string `toml:"translations"`
}

// LoadFixedTranslations 从 TOML 文件加载固定译文
func LoadFixedTranslations(path string) (*FixedTranslations, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("fixed translations file not found: %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixed translations file: %w", err)
	}

	fixed := &FixedTranslations{}
	if err := toml.Unmarshal(content, fixed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fixed translations: %w", err)
	}
	if fixed.TargetLang == "" {
		return nil, fmt.Errorf("fixed translations file is missing target_lang")
	}
	if fixed.TargetLang, err = NormalizeLanguage(fixed.TargetLang); err != nil {
		return nil, err
	}
	if fixed.SourceLang, err = NormalizeLanguage(fixed.SourceLang); err != nil {
		return nil, err
	}
	return fixed, nil
}

// Lookup 查找固定译文，目标语言不匹配时返回 false
func (f *FixedTranslations) Lookup(text, targetLang string) (string, bool) {
	if f == nil || !strings.EqualFold(f.TargetLang, targetLang) {
		return "", false
	}
	translated, ok := f.Translations[strings.TrimSpace(text)]
	return translated, ok
}
