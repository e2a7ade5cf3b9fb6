package factory

import (
	"fmt"
	"os"
	"time"

	"github.com/nerdneilsfield/go-intento-translator/internal/config"
	"github.com/nerdneilsfield/go-intento-translator/pkg/providers"
	"github.com/nerdneilsfield/go-intento-translator/pkg/providers/intento"
	"github.com/nerdneilsfield/go-intento-translator/pkg/providers/openai"
	"github.com/nerdneilsfield/go-intento-translator/pkg/providers/retry"
)

// CreateProvider 根据配置中的 backend 创建提供商
func CreateProvider(cfg *config.Config) (providers.Provider, error) {
	switch cfg.Backend {
	case config.BackendIntento, "":
		return CreateIntento(cfg)
	case config.BackendOpenAI:
		return CreateOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}

// CreateIntento 创建 Intento 提供商，目录查询等 Intento 专有操作需要具体类型
func CreateIntento(cfg *config.Config) (*intento.Provider, error) {
	apiKey, err := cfg.ResolveAPIKey()
	if err != nil {
		return nil, err
	}

	ic := intento.DefaultConfig()
	ic.APIKey = apiKey
	if cfg.Endpoint != "" {
		ic.APIEndpoint = cfg.Endpoint
	}
	applyBase(&ic.BaseConfig, cfg)
	ic.Provider = cfg.Provider
	ic.Model = cfg.Model
	ic.Routing = cfg.Routing
	ic.Category = cfg.Category
	ic.Trace = cfg.Trace
	ic.Sync = cfg.UseSync
	ic.PollInitialDelay = cfg.PollInitialDelay
	ic.PollInterval = cfg.PollInterval
	if cfg.PollAttempts > 0 {
		ic.PollAttempts = cfg.PollAttempts
	}

	return intento.New(ic), nil
}

// CreateOpenAI 创建 OpenAI 提供商，密钥取 openai.api_key 或 OPENAI_API_KEY
func CreateOpenAI(cfg *config.Config) (*openai.Provider, error) {
	apiKey := cfg.OpenAI.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai backend requires openai.api_key or OPENAI_API_KEY")
	}

	oc := openai.DefaultConfig()
	oc.APIKey = apiKey
	oc.APIEndpoint = cfg.OpenAI.BaseURL
	applyBase(&oc.BaseConfig, cfg)
	if cfg.OpenAI.Model != "" {
		oc.Model = cfg.OpenAI.Model
	}
	if cfg.OpenAI.Temperature > 0 {
		oc.Temperature = float32(cfg.OpenAI.Temperature)
	}
	if cfg.OpenAI.MaxTokens > 0 {
		oc.MaxTokens = cfg.OpenAI.MaxTokens
	}
	oc.RetryConfig = retry.RetryConfig{
		MaxRetries:    oc.MaxRetries,
		InitialDelay:  oc.RetryDelay,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}

	return openai.New(oc), nil
}

func applyBase(base *providers.BaseConfig, cfg *config.Config) {
	if t := cfg.Timeout(); t > 0 {
		base.Timeout = t
	}
	base.MaxRetries = cfg.MaxRetries
	if cfg.RetryDelay > 0 {
		base.RetryDelay = cfg.RetryDelay
	}
}
