package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProviderStats 单个翻译后端的请求统计
type ProviderStats struct {
	Provider  string `json:"provider"`
	Requests  int64  `json:"requests"`
	Successes int64  `json:"successes"`
	Failures  int64  `json:"failures"`
	// Chars 提交翻译的字符数
	Chars int64 `json:"chars"`

	TotalLatency time.Duration `json:"total_latency"`
	MinLatency   time.Duration `json:"min_latency"`
	MaxLatency   time.Duration `json:"max_latency"`

	ErrorTypes map[string]int64 `json:"error_types,omitempty"`

	FirstRequest time.Time `json:"first_request"`
	LastRequest  time.Time `json:"last_request"`
}

// AverageLatency 平均延迟
func (ps ProviderStats) AverageLatency() time.Duration {
	if ps.Requests == 0 {
		return 0
	}
	return ps.TotalLatency / time.Duration(ps.Requests)
}

// SuccessRate 成功率（百分比）
func (ps ProviderStats) SuccessRate() float64 {
	if ps.Requests == 0 {
		return 0
	}
	return float64(ps.Successes) / float64(ps.Requests) * 100
}

// RequestResult 单次请求结果
type RequestResult struct {
	Success   bool
	Latency   time.Duration
	Chars     int
	ErrorType string
}

// StatsManager 统计管理器
type StatsManager struct {
	stats  map[string]*ProviderStats
	dbPath string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewStatsManager 创建统计管理器，dbPath 为空时不持久化
func NewStatsManager(dbPath string, logger *zap.Logger) *StatsManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsManager{
		stats:  make(map[string]*ProviderStats),
		dbPath: dbPath,
		logger: logger,
	}
}

// RecordRequest 记录请求结果
func (sm *StatsManager) RecordRequest(provider string, result RequestResult) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ps, ok := sm.stats[provider]
	if !ok {
		ps = &ProviderStats{Provider: provider, ErrorTypes: make(map[string]int64)}
		sm.stats[provider] = ps
	}

	now := time.Now()
	if ps.FirstRequest.IsZero() {
		ps.FirstRequest = now
	}
	ps.LastRequest = now

	ps.Requests++
	ps.Chars += int64(result.Chars)
	if result.Success {
		ps.Successes++
	} else {
		ps.Failures++
		if result.ErrorType != "" {
			ps.ErrorTypes[result.ErrorType]++
		}
	}

	ps.TotalLatency += result.Latency
	if ps.MinLatency == 0 || result.Latency < ps.MinLatency {
		ps.MinLatency = result.Latency
	}
	if result.Latency > ps.MaxLatency {
		ps.MaxLatency = result.Latency
	}
}

// Snapshot 按后端名称排序的统计副本
func (sm *StatsManager) Snapshot() []ProviderStats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	out := make([]ProviderStats, 0, len(sm.stats))
	for _, ps := range sm.stats {
		cp := *ps
		cp.ErrorTypes = make(map[string]int64, len(ps.ErrorTypes))
		for k, v := range ps.ErrorTypes {
			cp.ErrorTypes[k] = v
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

// Reset 清空统计并删除持久化文件
func (sm *StatsManager) Reset() error {
	sm.mu.Lock()
	sm.stats = make(map[string]*ProviderStats)
	sm.mu.Unlock()

	if sm.dbPath == "" {
		return nil
	}
	if err := os.Remove(sm.dbPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stats file: %w", err)
	}
	return nil
}

// Save 写入 JSON 文件
func (sm *StatsManager) Save() error {
	if sm.dbPath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(sm.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}

	data, err := json.MarshalIndent(sm.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats data: %w", err)
	}

	tempPath := sm.dbPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	if err := os.Rename(tempPath, sm.dbPath); err != nil {
		return fmt.Errorf("failed to rename stats file: %w", err)
	}

	sm.logger.Debug("统计数据已保存", zap.String("path", sm.dbPath))
	return nil
}

// Load 读取 JSON 文件，文件不存在时保持为空
func (sm *StatsManager) Load() error {
	if sm.dbPath == "" {
		return nil
	}

	data, err := os.ReadFile(sm.dbPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read stats file: %w", err)
	}

	var list []ProviderStats
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("failed to unmarshal stats data: %w", err)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	for i := range list {
		ps := list[i]
		if ps.ErrorTypes == nil {
			ps.ErrorTypes = make(map[string]int64)
		}
		sm.stats[ps.Provider] = &ps
	}

	sm.logger.Debug("统计数据已加载", zap.String("path", sm.dbPath), zap.Int("providers", len(list)))
	return nil
}
