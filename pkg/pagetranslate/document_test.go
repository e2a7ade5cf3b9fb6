package pagetranslate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upperTranslator() Translator {
	return TranslatorFunc(func(_ context.Context, text, _ string) (string, error) {
		return strings.ToUpper(text), nil
	})
}

func TestLoadDocumentFragment(t *testing.T) {
	doc, err := LoadDocument(strings.NewReader(`<p>Hello <b>world</b></p>`))
	require.NoError(t, err)

	assert.True(t, doc.Fragment())
	out, err := doc.HTML()
	require.NoError(t, err)
	assert.Equal(t, `<p>Hello <b>world</b></p>`, out)
}

func TestLoadDocumentFullPage(t *testing.T) {
	doc, err := LoadDocument(strings.NewReader(`<!DOCTYPE html><html><head><title> My Page </title></head><body><p>x</p></body></html>`))
	require.NoError(t, err)

	assert.False(t, doc.Fragment())
	assert.Equal(t, "My Page", doc.Title())
	out, err := doc.HTML()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html><html>"))
}

func TestLoadDocumentWithoutOptionalTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "doctype and head content",
			in:   `<!DOCTYPE html><title>Shop</title><meta charset="utf-8"><p>Hello</p>`,
			want: []string{"<!DOCTYPE html>", "<title>Shop</title>", `<meta charset="utf-8"/>`, "<p>Hello</p>"},
		},
		{
			name: "explicit head only",
			in:   `<head><title>Shop</title></head><p>Hello</p>`,
			want: []string{"<head><title>Shop</title></head>", "<p>Hello</p>"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := LoadDocument(strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.False(t, doc.Fragment())
			assert.Equal(t, "Shop", doc.Title())

			out, err := doc.HTML()
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestTranslateHTMLKeepsHead(t *testing.T) {
	in := `<!DOCTYPE html><title>Shop</title><meta charset="utf-8"><p>Hello</p>`

	out, summary, err := New(upperTranslator()).TranslateHTML(context.Background(), strings.NewReader(in), "de")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total())
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, `<meta charset="utf-8"/>`)
	assert.Contains(t, out, "HELLO</p>")
}

func TestTranslateHTML(t *testing.T) {
	in := `<div class="card"><p>  hello  </p><script>keep("me")</script></div>`

	out, summary, err := New(upperTranslator()).TranslateHTML(context.Background(), strings.NewReader(in), "en")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Total())
	assert.Contains(t, out, "> HELLO </p>")
	assert.Contains(t, out, `keep("me")`)
	assert.Contains(t, out, "overflow-wrap: break-word")
}

func TestTranslateHTMLTableCell(t *testing.T) {
	in := `<table><tr><td>one</td><td>two</td></tr></table>`

	out, summary, err := New(upperTranslator()).TranslateHTML(context.Background(), strings.NewReader(in), "en")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded())
	assert.Equal(t, 2, strings.Count(out, "width: auto; min-width: 0;"))
	assert.Contains(t, out, ">ONE</td>")
}
