package intento

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-intento-translator/pkg/providers"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc, opts ...func(*Config)) *Provider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig()
	config.APIKey = "test-key"
	config.APIEndpoint = server.URL
	config.MaxRetries = 0
	config.PollInitialDelay = time.Millisecond
	config.PollInterval = time.Millisecond
	config.PollAttempts = 3
	for _, opt := range opts {
		opt(&config)
	}
	return New(config)
}

func decodeRequest(t *testing.T, r *http.Request) translateRequest {
	t.Helper()
	var body translateRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestTranslateSync(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ai/text/translate", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))

		body := decodeRequest(t, r)
		assert.Equal(t, "Hello", body.Context.Text)
		assert.Equal(t, "en", body.Context.From)
		assert.Equal(t, "es", body.Context.To)
		assert.False(t, body.Service.Async)
		assert.Equal(t, DefaultProvider, body.Service.Provider)
		assert.Equal(t, DefaultModel, body.Service.Model)

		_, _ = w.Write([]byte(`{"results":["Hola"],"meta":{"providers":[{"name":"OpenAI GPT-4"}]}}`))
	}, func(c *Config) { c.Sync = true })

	resp, err := p.Translate(context.Background(), &providers.ProviderRequest{
		Text:           "Hello",
		SourceLanguage: "en",
		TargetLanguage: "es",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hola", resp.Text)
	assert.Equal(t, "OpenAI GPT-4", resp.ProviderName)
}

func TestTranslateAsyncPolling(t *testing.T) {
	var polls int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ai/text/translate":
			body := decodeRequest(t, r)
			assert.True(t, body.Service.Async)
			_, _ = w.Write([]byte(`{"id":"op-1","done":false}`))
		case "/operations/op-1":
			if atomic.AddInt32(&polls, 1) < 2 {
				_, _ = w.Write([]byte(`{"id":"op-1","done":false}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"op-1","done":true,"response":[{"results":["Bonjour"]}],"meta":{"providers":[{"name":"DeepL"}]}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	resp, err := p.TranslateBatch(context.Background(), &providers.BatchRequest{
		Texts:          []string{"Hello"},
		TargetLanguage: "fr",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bonjour"}, resp.Texts)
	assert.Equal(t, "DeepL", resp.ProviderName)
	assert.Equal(t, int32(2), atomic.LoadInt32(&polls))
}

func TestTranslateAsyncOperationError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ai/text/translate" {
			_, _ = w.Write([]byte(`{"id":"op-2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"op-2","done":true,"error":{"code":500,"message":"provider failed"}}`))
	})

	_, err := p.TranslateBatch(context.Background(), &providers.BatchRequest{Texts: []string{"x"}, TargetLanguage: "de"})
	require.Error(t, err)

	var perr *providers.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, providers.ErrCodeAPI, perr.Code)
	assert.Contains(t, perr.Message, "provider failed")
}

func TestTranslateAsyncDoneWithoutResults(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ai/text/translate" {
			_, _ = w.Write([]byte(`{"id":"op-3"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"op-3","done":true,"response":[]}`))
	})

	_, err := p.TranslateBatch(context.Background(), &providers.BatchRequest{Texts: []string{"x"}, TargetLanguage: "de"})
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestTranslateAsyncTimeout(t *testing.T) {
	var polls int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ai/text/translate" {
			_, _ = w.Write([]byte(`{"id":"op-4"}`))
			return
		}
		atomic.AddInt32(&polls, 1)
		_, _ = w.Write([]byte(`{"id":"op-4","done":false}`))
	})

	_, err := p.TranslateBatch(context.Background(), &providers.BatchRequest{Texts: []string{"x"}, TargetLanguage: "de"})
	assert.ErrorIs(t, err, ErrOperationTimeout)
	assert.Equal(t, int32(3), atomic.LoadInt32(&polls))
}

func TestTranslateEmptyResults(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	})

	_, err := p.TranslateBatch(context.Background(), &providers.BatchRequest{Texts: []string{"x"}, TargetLanguage: "de", Sync: true})
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestTranslateUnexpectedResponse(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"weird"}`))
	})

	_, err := p.TranslateBatch(context.Background(), &providers.BatchRequest{Texts: []string{"x"}, TargetLanguage: "de"})
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestTranslateHTTPError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	})

	_, err := p.TranslateBatch(context.Background(), &providers.BatchRequest{Texts: []string{"x"}, TargetLanguage: "de"})
	require.Error(t, err)

	var perr *providers.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	assert.Equal(t, providers.ErrCodeAuth, perr.Code)
	assert.Equal(t, "invalid api key", perr.Message)
}

func TestTranslateForcesAsyncForLongText(t *testing.T) {
	long := strings.Repeat("a", SyncTokenLimit*4)
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ai/text/translate" {
			body := decodeRequest(t, r)
			assert.True(t, body.Service.Async)
			_, _ = w.Write([]byte(`{"id":"op-5"}`))
			return
		}
		_, _ = w.Write([]byte(`{"done":true,"response":[{"results":["b"]}]}`))
	})

	resp, err := p.TranslateBatch(context.Background(), &providers.BatchRequest{Texts: []string{long}, TargetLanguage: "de", Sync: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, resp.Texts)
}

func TestBuildRequestServiceSelection(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		req      providers.BatchRequest
		provider string
		model    string
		routing  string
	}{
		{
			name:     "default provider",
			req:      providers.BatchRequest{Texts: []string{"a"}},
			provider: DefaultProvider,
			model:    DefaultModel,
		},
		{
			name:    "configured routing",
			config:  Config{Routing: "best-quality"},
			req:     providers.BatchRequest{Texts: []string{"a"}},
			routing: "best-quality",
		},
		{
			name:     "provider wins over routing",
			config:   Config{Provider: "ai.text.translate.deepl.api", Routing: "best-quality"},
			req:      providers.BatchRequest{Texts: []string{"a"}},
			provider: "ai.text.translate.deepl.api",
		},
		{
			name:     "request overrides config",
			config:   Config{Routing: "best-quality"},
			req:      providers.BatchRequest{Texts: []string{"a"}, Provider: "ai.text.translate.google.translate_api.v3"},
			provider: "ai.text.translate.google.translate_api.v3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Provider{config: tt.config}
			body := p.buildRequest(&tt.req)
			assert.Equal(t, tt.provider, body.Service.Provider)
			assert.Equal(t, tt.model, body.Service.Model)
			assert.Equal(t, tt.routing, body.Service.Routing)
		})
	}
}

func TestBuildRequestMultipleTexts(t *testing.T) {
	p := &Provider{}
	body := p.buildRequest(&providers.BatchRequest{Texts: []string{"a", "b"}, TargetLanguage: "ja"})
	assert.Equal(t, []string{"a", "b"}, body.Context.Text)
}

func TestTranslateValidation(t *testing.T) {
	p := New(DefaultConfig())
	_, err := p.TranslateBatch(context.Background(), &providers.BatchRequest{TargetLanguage: "de"})
	assert.Error(t, err)
	_, err = p.TranslateBatch(context.Background(), &providers.BatchRequest{Texts: []string{"x"}})
	assert.Error(t, err)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "", errorMessage(nil))
	assert.Equal(t, "", errorMessage(json.RawMessage(`null`)))
	assert.Equal(t, "boom", errorMessage(json.RawMessage(`"boom"`)))
	assert.Equal(t, "400: bad", errorMessage(json.RawMessage(`{"code":400,"message":"bad"}`)))
	assert.Equal(t, `{"reason":"x"}`, errorMessage(json.RawMessage(`{"reason":"x"}`)))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(nil))
	assert.Equal(t, 2, EstimateTokens([]string{"abcd", "efgh"}))
	assert.Equal(t, 1, EstimateTokens([]string{"日本語です"}))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.50s", FormatDuration(1500*time.Millisecond))
}
