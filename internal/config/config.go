package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

const (
	// BackendIntento 通过 Intento API 翻译
	BackendIntento = "intento"
	// BackendOpenAI 直连 OpenAI 兼容接口
	BackendOpenAI = "openai"

	// DefaultKeyFile 默认的 API 密钥文件名
	DefaultKeyFile = "api-development.key"
)

// ErrMissingAPIKey 找不到 API 密钥
var ErrMissingAPIKey = errors.New("API key not found: set api_key, INTENTO_API_KEY or create " + DefaultKeyFile)

// OpenAIConfig 备用 OpenAI 后端配置
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// Config 保存翻译器的所有配置
type Config struct {
	APIKey     string `mapstructure:"api_key"`
	APIKeyFile string `mapstructure:"api_key_file"`
	Endpoint   string `mapstructure:"endpoint"`
	Backend    string `mapstructure:"backend"`

	// Intento 服务选择，Provider 优先于 Routing
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	Routing  string `mapstructure:"routing"`
	Category string `mapstructure:"category"`
	Trace    bool   `mapstructure:"trace"`

	SourceLang string `mapstructure:"source_lang"`
	TargetLang string `mapstructure:"target_lang"`
	UseSync    bool   `mapstructure:"use_sync"`

	RequestTimeout   int           `mapstructure:"request_timeout"` // 秒
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	PollInitialDelay time.Duration `mapstructure:"poll_initial_delay"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	PollAttempts     int           `mapstructure:"poll_attempts"`

	// 连续失败 BreakerFailures 次后熔断，0 表示不启用
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`

	MaxChunkChars int `mapstructure:"max_chunk_chars"`

	UseCache          bool   `mapstructure:"use_cache"`
	CacheDir          string `mapstructure:"cache_dir"`
	FixedTranslations string `mapstructure:"fixed_translations"`

	ServerAddr string `mapstructure:"server_addr"`

	OpenAI OpenAIConfig `mapstructure:"openai"`

	Debug   bool `mapstructure:"debug"`
	Verbose bool `mapstructure:"verbose"`
}

// LoadConfig 加载配置。
//
// 查找顺序：显式路径，否则 $HOME 和当前目录下的 .intento.yaml；
// 环境变量使用 INTENTO_ 前缀，.env 文件中的变量会先被加载到环境中。
func LoadConfig(configPath string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".intento")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("INTENTO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if config.CacheDir == "" {
		config.CacheDir = getDefaultCacheDir()
	}

	return &config, nil
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	return &Config{
		Endpoint:         "https://api.inten.to",
		Backend:          BackendIntento,
		TargetLang:       "es",
		RequestTimeout:   60,
		MaxRetries:       3,
		RetryDelay:       time.Second,
		PollInitialDelay: 2 * time.Second,
		PollInterval:     time.Second,
		PollAttempts:     10,
		BreakerFailures:  5,
		BreakerTimeout:   30 * time.Second,
		MaxChunkChars:    1000,
		UseCache:         true,
		CacheDir:         getDefaultCacheDir(),
		ServerAddr:       ":5000",
		OpenAI: OpenAIConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   4096,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("api_key", "")
	v.SetDefault("api_key_file", "")
	v.SetDefault("endpoint", d.Endpoint)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("provider", "")
	v.SetDefault("model", "")
	v.SetDefault("routing", "")
	v.SetDefault("category", "")
	v.SetDefault("trace", false)
	v.SetDefault("source_lang", "")
	v.SetDefault("target_lang", d.TargetLang)
	v.SetDefault("use_sync", false)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("retry_delay", d.RetryDelay)
	v.SetDefault("poll_initial_delay", d.PollInitialDelay)
	v.SetDefault("poll_interval", d.PollInterval)
	v.SetDefault("poll_attempts", d.PollAttempts)
	v.SetDefault("breaker_failures", d.BreakerFailures)
	v.SetDefault("breaker_timeout", d.BreakerTimeout)
	v.SetDefault("max_chunk_chars", d.MaxChunkChars)
	v.SetDefault("use_cache", d.UseCache)
	v.SetDefault("cache_dir", "")
	v.SetDefault("fixed_translations", "")
	v.SetDefault("server_addr", d.ServerAddr)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", d.OpenAI.BaseURL)
	v.SetDefault("openai.model", d.OpenAI.Model)
	v.SetDefault("openai.temperature", d.OpenAI.Temperature)
	v.SetDefault("openai.max_tokens", d.OpenAI.MaxTokens)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
}

// Validate 检查配置并规范化语言代码
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendIntento, BackendOpenAI:
	default:
		return fmt.Errorf("unsupported backend %q (want %s or %s)", c.Backend, BackendIntento, BackendOpenAI)
	}

	target, err := NormalizeLanguage(c.TargetLang)
	if err != nil {
		return fmt.Errorf("target_lang: %w", err)
	}
	if target == "" {
		return errors.New("target_lang is required")
	}
	c.TargetLang = target

	if c.SourceLang, err = NormalizeLanguage(c.SourceLang); err != nil {
		return fmt.Errorf("source_lang: %w", err)
	}

	if c.MaxChunkChars <= 0 {
		return fmt.Errorf("max_chunk_chars must be positive, got %d", c.MaxChunkChars)
	}
	if c.PollAttempts <= 0 {
		return fmt.Errorf("poll_attempts must be positive, got %d", c.PollAttempts)
	}
	if c.BreakerFailures < 0 {
		return fmt.Errorf("breaker_failures must not be negative, got %d", c.BreakerFailures)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries)
	}
	return nil
}

// Timeout 单次请求超时
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// NormalizeLanguage 校验 BCP 47 语言代码并返回规范形式，空字符串表示自动识别
func NormalizeLanguage(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", nil
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("invalid language code %q: %w", code, err)
	}
	return tag.String(), nil
}

// ResolveAPIKey 按顺序查找 Intento API 密钥：
// 配置项或环境变量、api_key_file、当前目录、上级目录和可执行文件目录下的 api-development.key。
func (c *Config) ResolveAPIKey() (string, error) {
	if key := strings.TrimSpace(c.APIKey); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(os.Getenv("INTENTO_API_KEY")); key != "" {
		return key, nil
	}

	for _, path := range c.keyFileCandidates() {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if key := strings.TrimSpace(string(data)); key != "" {
			return key, nil
		}
	}
	return "", ErrMissingAPIKey
}

func (c *Config) keyFileCandidates() []string {
	if c.APIKeyFile != "" {
		return []string{c.APIKeyFile}
	}

	candidates := []string{
		DefaultKeyFile,
		filepath.Join("..", DefaultKeyFile),
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), DefaultKeyFile))
	}
	return candidates
}

func getDefaultCacheDir() string {
	// 优先使用系统缓存目录
	cacheDir, err := os.UserCacheDir()
	if err == nil {
		return filepath.Join(cacheDir, "intento-translator")
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(homeDir, ".intento", "cache")
	}

	return "./intento-cache"
}
