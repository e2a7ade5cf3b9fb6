package test

import (
	"time"

	"github.com/nerdneilsfield/go-intento-translator/internal/config"
)

// CreateTestConfig 创建指向模拟服务器的测试配置，轮询间隔缩短到毫秒级
func CreateTestConfig(endpoint, cacheDir string) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.APIKey = "test-key"
	cfg.Endpoint = endpoint
	cfg.CacheDir = cacheDir
	cfg.UseCache = cacheDir != ""
	cfg.MaxRetries = 0
	cfg.RetryDelay = time.Millisecond
	cfg.PollInitialDelay = time.Millisecond
	cfg.PollInterval = time.Millisecond
	cfg.PollAttempts = 5
	return cfg
}
