package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-intento-translator/internal/test"
	"github.com/nerdneilsfield/go-intento-translator/pkg/providers/stats"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func fakeIntento(t *testing.T) *test.MockIntentoServer {
	t.Helper()
	server := test.NewMockIntentoServer()
	t.Cleanup(server.Close)
	return server
}

type testEnv struct {
	server     *test.MockIntentoServer
	configPath string
	cacheDir   string
	dir        string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	server := fakeIntento(t)
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")

	configPath := filepath.Join(dir, "intento.yaml")
	content := fmt.Sprintf(`api_key: test-key
endpoint: %s
cache_dir: %s
use_cache: true
use_sync: true
target_lang: es
max_retries: 0
`, server.URL, cacheDir)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	return &testEnv{server: server, configPath: configPath, cacheDir: cacheDir, dir: dir}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return execute(t, append([]string{"--config", e.configPath}, args...)...)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand("test", "abc123", "2024-01-01")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "test (commit abc123, built 2024-01-01)")
}

func TestHelpListsCommands(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"translate", "page", "providers", "languages", "routing", "serve", "cache", "stats"} {
		assert.Contains(t, out, name)
	}
}

func TestTranslateText(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "translate", "-t", "hello", "-t", "world", "--to", "fr")
	require.NoError(t, err)
	assert.Contains(t, out, "Provider: Mock MT")
	assert.Contains(t, out, "Translation: HELLO\nWORLD")
	assert.Contains(t, out, "Duration: ")

	calls := env.server.Requests()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"hello", "world"}, calls[0].Texts)
	assert.Equal(t, "fr", calls[0].To)
	assert.False(t, calls[0].Async)
}

func TestTranslateRouting(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "translate", "hello", "--routing", "best-quality")
	require.NoError(t, err)

	calls := env.server.Requests()
	require.Len(t, calls, 1)
	assert.Equal(t, "best-quality", calls[0].Routing)
	assert.Empty(t, calls[0].Provider)
}

func TestTranslateJSON(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "translate", "good morning", "--format", "json")
	require.NoError(t, err)

	var result translateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "Mock MT", result.Provider)
	assert.Equal(t, "GOOD MORNING", result.Translation)
	assert.NotEmpty(t, result.Duration)
}

func TestTranslateRequiresText(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "translate", "--to", "fr")
	assert.ErrorContains(t, err, "no text to translate")
}

func TestTranslateRejectsUnknownFormat(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "translate", "hi", "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestPageCommand(t *testing.T) {
	env := newTestEnv(t)

	input := filepath.Join(env.dir, "index.html")
	page := `<html><head><title>t</title><script>var x = "keep";</script></head><body><p>Hello there</p></body></html>`
	require.NoError(t, os.WriteFile(input, []byte(page), 0o644))

	out, err := env.run(t, "page", input, "--to", "de", "--progress")
	require.NoError(t, err)
	assert.Contains(t, out, "chunk 0")
	assert.Contains(t, out, "Run ID")
	assert.Contains(t, out, "翻译完成")

	translated, err := os.ReadFile(filepath.Join(env.dir, "index.de.html"))
	require.NoError(t, err)
	assert.Contains(t, string(translated), "HELLO THERE")
	assert.Contains(t, string(translated), `var x = "keep";`)
}

func TestPageCommandMissingInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "page", filepath.Join(env.dir, "missing.html"))
	assert.ErrorContains(t, err, "failed to read input file")
}

func TestProvidersFilter(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "providers", "--filter", "deepl")
	require.NoError(t, err)
	assert.Contains(t, out, "ai.text.translate.deepl.api")
	assert.NotContains(t, out, "google")
}

func TestLanguages(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "languages")
	require.NoError(t, err)
	assert.Contains(t, out, "German")
	assert.Contains(t, out, "French")

	out, err = env.run(t, "languages", "--filter", "germ")
	require.NoError(t, err)
	assert.Contains(t, out, "German")
	assert.NotContains(t, out, "French")
}

func TestRouting(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "routing")
	require.NoError(t, err)
	assert.Contains(t, out, "best-quality")
	assert.Contains(t, out, "Yes")

	out, err = env.run(t, "routing", "best-quality")
	require.NoError(t, err)
	assert.Contains(t, out, "Details for Routing Profile: best-quality")
	assert.Contains(t, out, `"rules": []`)

	_, err = env.run(t, "routing", "unknown")
	assert.Error(t, err)
}

func TestCacheStatsAndClear(t *testing.T) {
	env := newTestEnv(t)

	input := filepath.Join(env.dir, "page.html")
	require.NoError(t, os.WriteFile(input, []byte(`<p>Cached text</p>`), 0o644))
	_, err := env.run(t, "page", input)
	require.NoError(t, err)

	entries, err := filepath.Glob(filepath.Join(env.cacheDir, "*.cache"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	out, err := env.run(t, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, env.cacheDir)

	out, err = env.run(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "已清空缓存")

	entries, err = filepath.Glob(filepath.Join(env.cacheDir, "*.cache"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStatsCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "暂无统计数据")

	_, err = env.run(t, "translate", "hello")
	require.NoError(t, err)

	out, err = env.run(t, "stats", "--format", "json")
	require.NoError(t, err)

	var snapshot []stats.ProviderStats
	require.NoError(t, json.Unmarshal([]byte(out), &snapshot))
	require.Len(t, snapshot, 1)
	assert.Equal(t, int64(1), snapshot[0].Requests)
	assert.Equal(t, int64(1), snapshot[0].Successes)

	out, err = env.run(t, "stats", "--reset")
	require.NoError(t, err)
	assert.Contains(t, out, "统计数据已重置")
}

func TestMatchesFilter(t *testing.T) {
	assert.True(t, matchesFilter("", "anything"))
	assert.True(t, matchesFilter("dpl", "DeepL"))
	assert.False(t, matchesFilter("xyz", "DeepL", "ai.text.translate.deepl.api"))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2<<20))
}
