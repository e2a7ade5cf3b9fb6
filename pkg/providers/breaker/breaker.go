package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-intento-translator/pkg/providers"
)

// Config 熔断配置
type Config struct {
	// MaxFailures 连续失败达到该次数后断开
	MaxFailures uint32
	// OpenTimeout 断开后经过该时长进入半开状态
	OpenTimeout time.Duration
}

// DefaultConfig 默认熔断配置
func DefaultConfig() Config {
	return Config{
		MaxFailures: 5,
		OpenTimeout: 30 * time.Second,
	}
}

// Provider 带熔断的翻译后端。后端连续失败时快速返回 circuit_open 错误，
// 页面中剩余的分块不再等待注定失败的请求。
type Provider struct {
	next providers.Provider
	cb   *gobreaker.CircuitBreaker
}

var _ providers.Provider = (*Provider)(nil)

// New 创建熔断包装
func New(next providers.Provider, config Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxFailures == 0 {
		config.MaxFailures = DefaultConfig().MaxFailures
	}

	settings := gobreaker.Settings{
		Name:    next.GetName(),
		Timeout: config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("熔断状态变化",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Provider{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

// Translate 翻译单段文本
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	out, err := p.cb.Execute(func() (interface{}, error) {
		return p.next.Translate(ctx, req)
	})
	if err != nil {
		return nil, convertError(err)
	}
	return out.(*providers.ProviderResponse), nil
}

// TranslateBatch 批量翻译
func (p *Provider) TranslateBatch(ctx context.Context, req *providers.BatchRequest) (*providers.BatchResponse, error) {
	out, err := p.cb.Execute(func() (interface{}, error) {
		return p.next.TranslateBatch(ctx, req)
	})
	if err != nil {
		return nil, convertError(err)
	}
	return out.(*providers.BatchResponse), nil
}

// GetName 后端名称
func (p *Provider) GetName() string {
	return p.next.GetName()
}

// HealthCheck 健康检查不经过熔断
func (p *Provider) HealthCheck(ctx context.Context) error {
	return p.next.HealthCheck(ctx)
}

// State 当前熔断状态
func (p *Provider) State() gobreaker.State {
	return p.cb.State()
}

// countsAsSuccess 调用方取消和单条请求本身的问题不算后端故障
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var perr *providers.Error
	if errors.As(err, &perr) {
		return perr.Code == providers.ErrCodeBadRequest
	}
	return false
}

func convertError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &providers.Error{
			Code:    providers.ErrCodeCircuitOpen,
			Message: err.Error(),
		}
	}
	return err
}
