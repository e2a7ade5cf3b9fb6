package providers

import (
	"context"
	"fmt"
	"time"
)

// BaseConfig 基础配置
type BaseConfig struct {
	// API配置
	APIKey      string `json:"api_key,omitempty"`
	APIEndpoint string `json:"api_endpoint,omitempty"`

	// 超时和重试
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`

	// 自定义头部
	Headers map[string]string `json:"headers,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() BaseConfig {
	return BaseConfig{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second,
		Headers:    make(map[string]string),
	}
}

// TranslationProvider 单文本翻译接口
type TranslationProvider interface {
	// Translate 执行翻译
	Translate(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error)

	// GetName 获取提供商名称
	GetName() string
}

// BatchTranslator 多文本翻译接口
type BatchTranslator interface {
	TranslateBatch(ctx context.Context, req *BatchRequest) (*BatchResponse, error)
}

// Provider 翻译后端需要实现的全部能力
type Provider interface {
	TranslationProvider
	BatchTranslator

	// HealthCheck 健康检查
	HealthCheck(ctx context.Context) error
}

// ProviderRequest 提供商请求
type ProviderRequest struct {
	Text           string                 `json:"text"`
	SourceLanguage string                 `json:"source_language,omitempty"`
	TargetLanguage string                 `json:"target_language,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// ProviderResponse 提供商响应
type ProviderResponse struct {
	Text         string                 `json:"text"`
	ProviderName string                 `json:"provider_name,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// BatchRequest 多文本翻译请求
type BatchRequest struct {
	Texts          []string `json:"texts"`
	SourceLanguage string   `json:"source_language,omitempty"`
	TargetLanguage string   `json:"target_language"`

	// Sync 请求同步翻译，后端可以在文本过长时改用异步
	Sync bool `json:"sync,omitempty"`

	// Provider / Routing 覆盖后端默认的路由，Provider 优先
	Provider string `json:"provider,omitempty"`
	Routing  string `json:"routing,omitempty"`
}

// BatchResponse 多文本翻译响应
type BatchResponse struct {
	Texts        []string      `json:"texts"`
	ProviderName string        `json:"provider_name,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Error 提供商错误
type Error struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRetryable 判断错误是否可重试
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrCodeRateLimit, ErrCodeTimeout, ErrCodeServer:
		return true
	default:
		return false
	}
}

// 错误码
const (
	ErrCodeRateLimit   = "rate_limit"
	ErrCodeTimeout     = "timeout"
	ErrCodeServer      = "server_error"
	ErrCodeAuth        = "auth_error"
	ErrCodeBadRequest  = "bad_request"
	ErrCodeAPI         = "api_error"
	ErrCodeMalformed   = "malformed_response"
	ErrCodeCircuitOpen = "circuit_open"
)

// NewError 创建提供商错误
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewHTTPError 根据 HTTP 状态码创建错误
func NewHTTPError(statusCode int, message string) *Error {
	code := ErrCodeAPI
	switch {
	case statusCode == 401 || statusCode == 403:
		code = ErrCodeAuth
	case statusCode == 408:
		code = ErrCodeTimeout
	case statusCode == 429:
		code = ErrCodeRateLimit
	case statusCode >= 500:
		code = ErrCodeServer
	case statusCode >= 400:
		code = ErrCodeBadRequest
	}
	return &Error{Code: code, Message: message, StatusCode: statusCode}
}
