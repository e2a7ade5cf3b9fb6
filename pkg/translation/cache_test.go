package translation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCacheKey(t *testing.T) {
	base := KeyComponents{Provider: "intento", SourceLang: "en", TargetLang: "es", Text: "Hello"}
	key := GenerateCacheKey(base)
	assert.Len(t, key, 32)
	assert.Equal(t, key, GenerateCacheKey(base))

	other := base
	other.TargetLang = "fr"
	assert.NotEqual(t, key, GenerateCacheKey(other))
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()

	_, ok := c.Get("k")
	assert.False(t, ok)

	require.NoError(t, c.Set("k", Entry{Value: "hola"}))
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "hola", v)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Entries)
	assert.Equal(t, int64(4), stats.Bytes)
	assert.False(t, stats.LastUpdated.IsZero())

	require.NoError(t, c.Clear())
	assert.Equal(t, CacheStats{}, c.Stats())
}

func TestMemoryCacheTTL(t *testing.T) {
	c := NewMemoryCache()
	require.NoError(t, c.Set("k", Entry{Value: "v", Timestamp: time.Now().Add(-time.Hour), TTL: time.Minute}))

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Stats().Entries)
}

func TestFileCachePersists(t *testing.T) {
	dir := t.TempDir()

	c, err := NewFileCache(dir)
	require.NoError(t, err)
	require.NoError(t, c.Set("abc", Entry{Value: "bonjour", Source: "hello", TargetLang: "fr"}))

	// 新实例从磁盘读取
	reopened, err := NewFileCache(dir)
	require.NoError(t, err)
	v, ok := reopened.Get("abc")
	assert.True(t, ok)
	assert.Equal(t, "bonjour", v)

	stats := reopened.Stats()
	assert.Equal(t, int64(1), stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Positive(t, stats.Bytes)

	_, ok = reopened.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, int64(1), reopened.Stats().Misses)
}

func TestFileCacheConcurrentSetSameKey(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value := fmt.Sprintf("v%d-%s", i, strings.Repeat("x", 4096*(i%4+1)))
			assert.NoError(t, c.Set("same", Entry{Value: value, TargetLang: "de"}))
		}(i)
	}
	wg.Wait()

	// 只剩一个完整条目，没有遗留临时文件
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "same.cache", files[0].Name())

	reopened, err := NewFileCache(dir)
	require.NoError(t, err)
	v, ok := reopened.Get("same")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(v, "v"))
}

func TestFileCacheClear(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	require.NoError(t, err)

	require.NoError(t, c.Set("a", Entry{Value: "1"}))
	require.NoError(t, c.Set("b", Entry{Value: "2"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644))

	require.NoError(t, c.Clear())
	assert.Equal(t, int64(0), c.Stats().Entries)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.FileExists(t, filepath.Join(dir, "keep.txt"))
}

func TestFileCacheCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cache"), []byte("{"), 0o644))

	_, ok := c.Get("bad")
	assert.False(t, ok)
}

func TestNewCache(t *testing.T) {
	c, err := NewCache(false, t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = NewCache(true, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	c, err = NewCache(true, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileCache{}, c)
}
