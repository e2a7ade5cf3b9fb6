package intento

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/ai/text/translate":
			_, _ = w.Write([]byte(`[{"id":"ai.text.translate.deepl.api","name":"DeepL API","vendor":"DeepL"}]`))
		case "/ai/text/translate/languages":
			_, _ = w.Write([]byte(`[{"intento_code":"en","iso_name":"English"},{"intento_code":"zh","iso_name":"Chinese"}]`))
		case "/routing-designer/":
			_, _ = w.Write([]byte(`{"data":[{"name":"best","description":"Best quality","is_public":true,"is_active":true,"rule_groups":[{"description":"legal"}]}]}`))
		case "/routing-designer/best":
			_, _ = w.Write([]byte(`{"name":"best","rules":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
		}
	}
}

func TestListProviders(t *testing.T) {
	p := newTestProvider(t, catalogHandler(t))

	list, err := p.ListProviders(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ai.text.translate.deepl.api", list[0].ID)
	assert.Equal(t, "DeepL", list[0].Vendor)

	assert.NoError(t, p.HealthCheck(context.Background()))
}

func TestListLanguages(t *testing.T) {
	p := newTestProvider(t, catalogHandler(t))

	list, err := p.ListLanguages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []LanguageInfo{
		{IntentoCode: "en", ISOName: "English"},
		{IntentoCode: "zh", ISOName: "Chinese"},
	}, list)
}

func TestListRoutingProfiles(t *testing.T) {
	p := newTestProvider(t, catalogHandler(t))

	list, err := p.ListRoutingProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "best", list[0].Name)
	assert.True(t, list[0].IsPublic)
	assert.Equal(t, []RuleGroup{{Description: "legal"}}, list[0].RuleGroups)
}

func TestGetRoutingProfile(t *testing.T) {
	p := newTestProvider(t, catalogHandler(t))

	raw, err := p.GetRoutingProfile(context.Background(), "best")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"best","rules":[]}`, string(raw))

	_, err = p.GetRoutingProfile(context.Background(), "missing")
	assert.Error(t, err)
}
