package pagetranslate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInlineStyle(t *testing.T) {
	s := parseInlineStyle(`Color: red; background: url("a;b.png") no-repeat; font-family: 'x;y'; width:10px !important`)

	assert.Equal(t, "red", s.Get("color"))
	assert.Equal(t, `url("a;b.png") no-repeat`, s.Get("background"))
	assert.Equal(t, "'x;y'", s.Get("font-family"))
	assert.Equal(t, "10px", s.Get("width"))
	assert.Empty(t, s.Get("height"))
	assert.Len(t, s.decls, 4)
	assert.True(t, s.decls[3].important)
}

func TestInlineStyleSetKeepsOrder(t *testing.T) {
	s := parseInlineStyle("a: 1; b: 2 !important")
	s.Set("a", "3")
	s.Set("c", "4")

	assert.Equal(t, "a: 3; b: 2 !important; c: 4;", s.String())
	assert.Empty(t, parseInlineStyle("").String())
}

func TestInlineStyleSetOverridesImportant(t *testing.T) {
	s := parseInlineStyle("width: 200px !important")
	s.Set("width", "auto")

	assert.Equal(t, "width: auto;", s.String())
}

func TestInlineStyleKeepsUnparsableText(t *testing.T) {
	s := parseInlineStyle("broken; color: red")
	s.Set("width", "auto")

	out := s.String()
	assert.True(t, strings.HasPrefix(out, "broken; color: red"))
	assert.True(t, strings.HasSuffix(out, "width: auto;"))
}

func TestComputedDisplay(t *testing.T) {
	root := parseHTML(t, `<div id="d">a</div><span>b</span><table><tr><td>c</td></tr></table>
<ul><li>d</li></ul><button>e</button><span style="display: Flex">f</span>`)

	display := map[string]string{}
	for _, n := range Collect(root).Nodes() {
		display[n.Data] = computedDisplay(n.Parent)
	}

	assert.Equal(t, map[string]string{
		"a": "block",
		"b": "inline",
		"c": "table-cell",
		"d": "list-item",
		"e": "inline-block",
		"f": "flex",
	}, display)
	assert.Empty(t, computedDisplay(nil))
}
