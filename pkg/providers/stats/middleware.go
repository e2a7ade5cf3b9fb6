package stats

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/nerdneilsfield/go-intento-translator/pkg/providers"
)

// StatisticsMiddleware 记录每次调用结果的 Provider 包装
type StatisticsMiddleware struct {
	next         providers.Provider
	statsManager *StatsManager
}

var _ providers.Provider = (*StatisticsMiddleware)(nil)

// NewStatisticsMiddleware 创建统计中间件
func NewStatisticsMiddleware(next providers.Provider, statsManager *StatsManager) *StatisticsMiddleware {
	return &StatisticsMiddleware{
		next:         next,
		statsManager: statsManager,
	}
}

// Translate 带统计的翻译方法
func (sm *StatisticsMiddleware) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	start := time.Now()
	resp, err := sm.next.Translate(ctx, req)
	sm.record(start, utf8.RuneCountInString(req.Text), err)
	return resp, err
}

// TranslateBatch 带统计的批量翻译
func (sm *StatisticsMiddleware) TranslateBatch(ctx context.Context, req *providers.BatchRequest) (*providers.BatchResponse, error) {
	chars := 0
	for _, t := range req.Texts {
		chars += utf8.RuneCountInString(t)
	}

	start := time.Now()
	resp, err := sm.next.TranslateBatch(ctx, req)
	sm.record(start, chars, err)
	return resp, err
}

// GetName 获取提供商名称
func (sm *StatisticsMiddleware) GetName() string {
	return sm.next.GetName()
}

// HealthCheck 健康检查，不计入统计
func (sm *StatisticsMiddleware) HealthCheck(ctx context.Context) error {
	return sm.next.HealthCheck(ctx)
}

func (sm *StatisticsMiddleware) record(start time.Time, chars int, err error) {
	sm.statsManager.RecordRequest(sm.next.GetName(), RequestResult{
		Success:   err == nil,
		Latency:   time.Since(start),
		Chars:     chars,
		ErrorType: ErrorType(err),
	})
}

// ErrorType 错误分类名称
func ErrorType(err error) string {
	if err == nil {
		return ""
	}
	var perr *providers.Error
	switch {
	case errors.As(err, &perr):
		return perr.Code
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	}
	return "other"
}
