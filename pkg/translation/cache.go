package translation

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Cache 翻译缓存
type Cache interface {
	Get(key string) (string, bool)
	Set(key string, entry Entry) error
	Clear() error
	Stats() CacheStats
}

// Entry 缓存条目
type Entry struct {
	Value      string        `json:"value"`
	Source     string        `json:"source,omitempty"`
	TargetLang string        `json:"target_lang,omitempty"`
	Provider   string        `json:"provider,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	TTL        time.Duration `json:"ttl,omitempty"`
}

func (e Entry) expired() bool {
	return e.TTL > 0 && time.Since(e.Timestamp) > e.TTL
}

// CacheStats 缓存统计信息
type CacheStats struct {
	Hits        int64
	Misses      int64
	Entries     int64
	Bytes       int64
	LastUpdated time.Time
}

// KeyComponents 缓存 key 组成部分
type KeyComponents struct {
	Provider   string // 后端或 Intento provider/routing
	SourceLang string
	TargetLang string
	Text       string
}

// GenerateCacheKey 生成 MD5 缓存 key
func GenerateCacheKey(c KeyComponents) string {
	keyData := fmt.Sprintf("provider:%s|src:%s|tgt:%s|text:%s", c.Provider, c.SourceLang, c.TargetLang, c.Text)
	return fmt.Sprintf("%x", md5.Sum([]byte(keyData)))
}

// MemoryCache 内存缓存实现
type MemoryCache struct {
	data  map[string]Entry
	mutex sync.Mutex
	stats CacheStats
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]Entry),
	}
}

// Get 获取缓存
func (c *MemoryCache) Get(key string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.data[key]
	if !exists || entry.expired() {
		delete(c.data, key)
		c.stats.Misses++
		return "", false
	}

	c.stats.Hits++
	return entry.Value, true
}

// Set 设置缓存
func (c *MemoryCache) Set(key string, entry Entry) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	c.data[key] = entry
	if entry.Timestamp.After(c.stats.LastUpdated) {
		c.stats.LastUpdated = entry.Timestamp
	}
	return nil
}

// Clear 清除所有缓存
func (c *MemoryCache) Clear() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]Entry)
	c.stats = CacheStats{}
	return nil
}

// Stats 获取缓存统计信息
func (c *MemoryCache) Stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stats := c.stats
	stats.Entries = int64(len(c.data))
	for _, e := range c.data {
		stats.Bytes += int64(len(e.Value))
	}
	return stats
}

// FileCache 文件缓存实现，每个条目一个 JSON 文件，内存缓存作为一级缓存
type FileCache struct {
	basePath string
	memory   *MemoryCache
	mutex    sync.Mutex
	hits     int64
	misses   int64
}

// NewFileCache 创建文件缓存
func NewFileCache(basePath string) (*FileCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", basePath, err)
	}

	return &FileCache{
		basePath: basePath,
		memory:   NewMemoryCache(),
	}, nil
}

// Path 缓存目录
func (c *FileCache) Path() string {
	return c.basePath
}

func (c *FileCache) filePath(key string) string {
	return filepath.Join(c.basePath, key+".cache")
}

// Get 获取缓存
func (c *FileCache) Get(key string) (string, bool) {
	if value, ok := c.memory.Get(key); ok {
		c.count(true)
		return value, true
	}

	path := c.filePath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		c.count(false)
		return "", false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.count(false)
		return "", false
	}
	if entry.expired() {
		_ = os.Remove(path)
		c.count(false)
		return "", false
	}

	_ = c.memory.Set(key, entry)
	c.count(true)
	return entry.Value, true
}

// Set 设置缓存
func (c *FileCache) Set(key string, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := c.memory.Set(key, entry); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return writeFileAtomic(c.filePath(key), data)
}

// writeFileAtomic 先写临时文件再重命名，并发写同一个键时读到的总是完整条目
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close cache entry: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename cache entry: %w", err)
	}
	return nil
}

// Clear 删除缓存目录下所有 .cache 文件
func (c *FileCache) Clear() error {
	_ = c.memory.Clear()

	files, err := filepath.Glob(filepath.Join(c.basePath, "*.cache"))
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	c.mutex.Lock()
	c.hits, c.misses = 0, 0
	c.mutex.Unlock()
	return nil
}

// Stats 统计磁盘上的条目，命中率只统计本进程
func (c *FileCache) Stats() CacheStats {
	c.mutex.Lock()
	stats := CacheStats{Hits: c.hits, Misses: c.misses}
	c.mutex.Unlock()

	files, _ := filepath.Glob(filepath.Join(c.basePath, "*.cache"))
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		stats.Entries++
		stats.Bytes += info.Size()
		if info.ModTime().After(stats.LastUpdated) {
			stats.LastUpdated = info.ModTime()
		}
	}
	return stats
}

func (c *FileCache) count(hit bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

// NewCache 根据配置创建缓存实例，cacheDir 为空时使用内存缓存
func NewCache(useCache bool, cacheDir string) (Cache, error) {
	if !useCache {
		return nil, nil
	}
	if cacheDir == "" {
		return NewMemoryCache(), nil
	}
	cache, err := NewFileCache(cacheDir)
	if err != nil {
		return nil, err
	}
	return cache, nil
}
