package intento

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nerdneilsfield/go-intento-translator/pkg/providers"
	"github.com/nerdneilsfield/go-intento-translator/pkg/providers/retry"
)

const (
	// DefaultEndpoint Intento API 地址
	DefaultEndpoint = "https://api.inten.to"
	// DefaultProvider 未指定 provider 和 routing 时使用的提供商
	DefaultProvider = "ai.text.translate.openai.gpt-4.translate"
	// DefaultModel 与 DefaultProvider 搭配的模型
	DefaultModel = "openai/gpt-4"

	// SyncTokenLimit 估算 token 数达到该值时强制使用异步模式
	SyncTokenLimit = 10000

	userAgent      = "Intento.Integration.go/1.0"
	translatePath  = "/ai/text/translate"
	operationsPath = "/operations/"
	routingPath    = "/routing-designer/"
	maxBodyBytes   = 16 << 20
)

var (
	// ErrNoResults 响应中没有翻译结果
	ErrNoResults = errors.New("intento: translation completed without results")
	// ErrOperationTimeout 异步任务轮询次数用尽
	ErrOperationTimeout = errors.New("intento: async operation timed out")
	// ErrUnexpectedResponse 无法识别的响应格式
	ErrUnexpectedResponse = errors.New("intento: unexpected response format")
)

// Config Intento 配置
type Config struct {
	providers.BaseConfig

	// Provider 指定提供商，优先级高于 Routing
	Provider string `json:"provider,omitempty"`
	// Model 提供商模型
	Model string `json:"model,omitempty"`
	// Routing Smart Routing 配置名
	Routing string `json:"routing,omitempty"`
	// Category 内容类别
	Category string `json:"category,omitempty"`
	// Sync 默认使用同步翻译
	Sync bool `json:"sync"`
	// Trace 让服务端记录调试信息
	Trace bool `json:"trace,omitempty"`

	// 异步任务轮询
	PollInitialDelay time.Duration `json:"poll_initial_delay"`
	PollInterval     time.Duration `json:"poll_interval"`
	PollAttempts     int           `json:"poll_attempts"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig:       providers.DefaultConfig(),
		PollInitialDelay: 2 * time.Second,
		PollInterval:     time.Second,
		PollAttempts:     10,
	}
	config.APIEndpoint = DefaultEndpoint
	return config
}

// Provider Intento 提供商
type Provider struct {
	config Config
	client *retry.RetryableHTTPClient
}

// 确保 Provider 实现 providers.Provider 接口
var _ providers.Provider = (*Provider)(nil)

// New 创建 Intento 提供商
func New(config Config) *Provider {
	if config.APIEndpoint == "" {
		config.APIEndpoint = DefaultEndpoint
	}
	config.APIEndpoint = strings.TrimRight(config.APIEndpoint, "/")
	if config.PollAttempts <= 0 {
		config.PollAttempts = 10
	}

	retrier := retry.NewNetworkRetrier(retry.RetryConfig{
		MaxRetries:    config.MaxRetries,
		InitialDelay:  config.RetryDelay,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	})

	return &Provider{
		config: config,
		client: retrier.WrapHTTPClient(&http.Client{Timeout: config.Timeout}),
	}
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "intento"
}

// Translate 翻译单段文本
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	resp, err := p.TranslateBatch(ctx, &providers.BatchRequest{
		Texts:          []string{req.Text},
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Sync:           p.config.Sync,
	})
	if err != nil {
		return nil, err
	}

	return &providers.ProviderResponse{
		Text:         resp.Texts[0],
		ProviderName: resp.ProviderName,
		Metadata: map[string]interface{}{
			"duration": resp.Duration,
		},
	}, nil
}

// TranslateBatch 翻译一组文本。
//
// 同步请求直接返回结果；异步请求返回 operation id，随后轮询 /operations/{id}，
// 等待时间按 PollInterval * 2^attempt 递增。
func (p *Provider) TranslateBatch(ctx context.Context, req *providers.BatchRequest) (*providers.BatchResponse, error) {
	if len(req.Texts) == 0 {
		return nil, providers.NewError(providers.ErrCodeBadRequest, "no text to translate")
	}
	if req.TargetLanguage == "" {
		return nil, providers.NewError(providers.ErrCodeBadRequest, "target language is required")
	}

	start := time.Now()

	var resp translateResponse
	if err := p.doJSON(ctx, http.MethodPost, translatePath, p.buildRequest(req), &resp); err != nil {
		return nil, err
	}

	texts, providerName, err := p.resolve(ctx, &resp)
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, ErrNoResults
	}

	return &providers.BatchResponse{
		Texts:        texts,
		ProviderName: providerName,
		Duration:     time.Since(start),
	}, nil
}

// HealthCheck 健康检查
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.ListProviders(ctx)
	return err
}

// EstimateTokens 粗略估算 token 数（字符数 / 4）
func EstimateTokens(texts []string) int {
	total := 0
	for _, t := range texts {
		total += utf8.RuneCountInString(t)
	}
	return total / 4
}

func (p *Provider) buildRequest(req *providers.BatchRequest) *translateRequest {
	body := &translateRequest{
		Context: requestContext{
			From:     req.SourceLanguage,
			To:       req.TargetLanguage,
			Category: p.config.Category,
		},
		Service: serviceOptions{
			Async: !req.Sync || EstimateTokens(req.Texts) >= SyncTokenLimit,
			Trace: p.config.Trace,
		},
	}
	if len(req.Texts) == 1 {
		body.Context.Text = req.Texts[0]
	} else {
		body.Context.Text = req.Texts
	}

	provider, routing := req.Provider, req.Routing
	if provider == "" && routing == "" {
		provider, routing = p.config.Provider, p.config.Routing
	}

	switch {
	case provider != "":
		body.Service.Provider = provider
		body.Service.Model = p.config.Model
	case routing != "":
		body.Service.Routing = routing
	default:
		body.Service.Provider = DefaultProvider
		body.Service.Model = DefaultModel
		if p.config.Model != "" {
			body.Service.Model = p.config.Model
		}
	}
	return body
}

// resolve 从首个响应得到译文，必要时轮询异步任务
func (p *Provider) resolve(ctx context.Context, resp *translateResponse) ([]string, string, error) {
	if msg := errorMessage(resp.Error); msg != "" {
		return nil, "", providers.NewError(providers.ErrCodeAPI, msg)
	}

	switch {
	case resp.Results != nil:
		if len(resp.Results) == 0 {
			return nil, "", ErrNoResults
		}
		return resp.Results, resp.Meta.providerName(), nil
	case resp.ID != "" && !resp.Done:
		return p.poll(ctx, resp.ID)
	case resp.Done:
		return operationResults(resp)
	default:
		return nil, "", ErrUnexpectedResponse
	}
}

func (p *Provider) poll(ctx context.Context, id string) ([]string, string, error) {
	if err := sleep(ctx, p.config.PollInitialDelay); err != nil {
		return nil, "", err
	}

	for attempt := 0; attempt < p.config.PollAttempts; attempt++ {
		delay := time.Duration(float64(p.config.PollInterval) * math.Pow(2, float64(attempt)))
		if err := sleep(ctx, delay); err != nil {
			return nil, "", err
		}

		var op translateResponse
		if err := p.doJSON(ctx, http.MethodGet, operationsPath+id, nil, &op); err != nil {
			return nil, "", err
		}
		if msg := errorMessage(op.Error); msg != "" {
			return nil, "", providers.NewError(providers.ErrCodeAPI, msg)
		}
		if op.Done {
			return operationResults(&op)
		}
	}

	return nil, "", fmt.Errorf("%w: operation %s after %d attempts", ErrOperationTimeout, id, p.config.PollAttempts)
}

func operationResults(op *translateResponse) ([]string, string, error) {
	if len(op.Response) == 0 || len(op.Response[0].Results) == 0 {
		return nil, "", ErrNoResults
	}
	name := op.Meta.providerName()
	if name == "" {
		name = op.Response[0].Meta.providerName()
	}
	return op.Response[0].Results, name, nil
}

// doJSON 发送请求并解析 JSON 响应，非 2xx 状态码返回 *providers.Error
func (p *Provider) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.config.APIEndpoint+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", p.config.APIKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range p.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("intento request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		var envelope struct {
			Error json.RawMessage `json:"error"`
		}
		if json.Unmarshal(data, &envelope) == nil {
			if m := errorMessage(envelope.Error); m != "" {
				msg = m
			}
		}
		if msg == "" {
			msg = resp.Status
		}
		return providers.NewHTTPError(resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &providers.Error{
			Code:       providers.ErrCodeMalformed,
			Message:    fmt.Sprintf("failed to decode response: %v", err),
			StatusCode: resp.StatusCode,
		}
	}
	return nil
}

// errorMessage 兼容字符串和对象两种 error 字段
func errorMessage(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == `""` {
		return ""
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}

	var obj struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		if obj.Code != 0 {
			return fmt.Sprintf("%d: %s", obj.Code, obj.Message)
		}
		return obj.Message
	}
	return trimmed
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FormatDuration 小于一秒显示毫秒，否则显示两位小数的秒
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
