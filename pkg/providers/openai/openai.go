package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nerdneilsfield/go-intento-translator/pkg/providers"
	"github.com/nerdneilsfield/go-intento-translator/pkg/providers/retry"
)

const systemPrompt = "You are a professional translator. Translate the user's text accurately while preserving the original meaning and tone. Reply with the translation only, without quotes or explanations."

// Config OpenAI配置
type Config struct {
	providers.BaseConfig
	Model       string            `json:"model"`
	Temperature float32           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
	RetryConfig retry.RetryConfig `json:"retry_config"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  providers.DefaultConfig(),
		Model:       goopenai.GPT4oMini,
		Temperature: 0.3,
		MaxTokens:   4096,
		RetryConfig: retry.DefaultRetryConfig(),
	}
}

// Provider 直连 OpenAI 兼容接口的提供商，Intento 不可用时作为备用后端
type Provider struct {
	config Config
	client *goopenai.Client
}

var _ providers.Provider = (*Provider)(nil)

// New 创建新的OpenAI提供商
func New(config Config) *Provider {
	clientConfig := goopenai.DefaultConfig(config.APIKey)
	if config.APIEndpoint != "" {
		clientConfig.BaseURL = strings.TrimSuffix(config.APIEndpoint, "/")
	}

	// 请求经过网络重试器，429 和 5xx 自动重试
	httpClient := &http.Client{Timeout: config.Timeout}
	clientConfig.HTTPClient = retry.NewNetworkRetrier(config.RetryConfig).WrapHTTPClient(httpClient)

	return &Provider{
		config: config,
		client: goopenai.NewClientWithConfig(clientConfig),
	}
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "openai"
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return &providers.ProviderResponse{Text: req.Text, ProviderName: p.GetName()}, nil
	}

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
		Temperature: p.config.Temperature,
		MaxTokens:   p.config.MaxTokens,
	})
	if err != nil {
		return nil, convertError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, providers.NewError(providers.ErrCodeMalformed, "no choices returned from OpenAI")
	}

	return &providers.ProviderResponse{
		Text:         strings.TrimSpace(resp.Choices[0].Message.Content),
		ProviderName: resp.Model,
		Metadata: map[string]interface{}{
			"id":            resp.ID,
			"finish_reason": string(resp.Choices[0].FinishReason),
			"tokens_in":     resp.Usage.PromptTokens,
			"tokens_out":    resp.Usage.CompletionTokens,
		},
	}, nil
}

// TranslateBatch 逐条翻译
func (p *Provider) TranslateBatch(ctx context.Context, req *providers.BatchRequest) (*providers.BatchResponse, error) {
	start := time.Now()
	out := &providers.BatchResponse{Texts: make([]string, 0, len(req.Texts))}

	for i, text := range req.Texts {
		resp, err := p.Translate(ctx, &providers.ProviderRequest{
			Text:           text,
			SourceLanguage: req.SourceLanguage,
			TargetLanguage: req.TargetLanguage,
		})
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out.Texts = append(out.Texts, resp.Text)
		out.ProviderName = resp.ProviderName
	}

	out.Duration = time.Since(start)
	return out, nil
}

// HealthCheck 列出模型以验证密钥和地址
func (p *Provider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return convertError(err)
	}
	return nil
}

func userPrompt(req *providers.ProviderRequest) string {
	var sb strings.Builder
	if req.SourceLanguage != "" {
		fmt.Fprintf(&sb, "Translate the following text from %s to %s", req.SourceLanguage, req.TargetLanguage)
	} else {
		fmt.Fprintf(&sb, "Translate the following text to %s", req.TargetLanguage)
	}
	if instruction, ok := req.Metadata["instruction"].(string); ok && instruction != "" {
		sb.WriteString(". ")
		sb.WriteString(instruction)
	}
	sb.WriteString(":\n\n")
	sb.WriteString(req.Text)
	return sb.String()
}

// convertError 把 go-openai 的错误转成 providers.Error
func convertError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		e := providers.NewHTTPError(apiErr.HTTPStatusCode, apiErr.Message)
		e.Details = map[string]interface{}{"type": apiErr.Type}
		return e
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return providers.NewHTTPError(reqErr.HTTPStatusCode, strings.TrimSpace(string(reqErr.Body)))
	}
	return fmt.Errorf("openai request failed: %w", err)
}
