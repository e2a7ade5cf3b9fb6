package pagetranslate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func parseHTML(t *testing.T, s string) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(s))
	require.NoError(t, err)
	return root
}

func nodeTexts(nodes []*html.Node) []string {
	texts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		texts = append(texts, n.Data)
	}
	return texts
}

func TestCollectDocumentOrder(t *testing.T) {
	root := parseHTML(t, `<html><head><title>Page</title></head><body>
  <p>Hello <b>world</b></p>
  <div>Next paragraph</div>
</body></html>`)

	nodes := Collect(root).Nodes()
	assert.Equal(t, []string{"Page", "Hello ", "world", "Next paragraph"}, nodeTexts(nodes))
}

func TestCollectSkipsNonContentSubtrees(t *testing.T) {
	root := parseHTML(t, `<body>
<p>visible</p>
<script>var secret = "script text";</script>
<style>.hidden { color: red }</style>
<noscript><p>noscript text</p></noscript>
<iframe>iframe text</iframe>
<div><script>nested()</script><span>also visible</span></div>
</body>`)

	texts := nodeTexts(Collect(root).Nodes())
	assert.Equal(t, []string{"visible", "also visible"}, texts)
	for _, text := range texts {
		assert.NotContains(t, text, "script")
		assert.NotContains(t, text, "iframe")
	}
}

func TestCollectSkipsWhitespaceOnlyNodes(t *testing.T) {
	root := parseHTML(t, "<body><p>  </p><p>\n\t</p><p> a </p></body>")

	assert.Equal(t, []string{" a "}, nodeTexts(Collect(root).Nodes()))
}

func TestCollectRootInsideSkippedElement(t *testing.T) {
	root := parseHTML(t, `<body><script>alert("x")</script></body>`)

	assert.Empty(t, Collect(root).Nodes())

	var script *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.DataAtom == atom.Script {
			script = n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(root)
	require.NotNil(t, script)
	require.NotNil(t, script.FirstChild)

	assert.Nil(t, Collect(script.FirstChild).Next())
}

func TestCollectIsNotRestartable(t *testing.T) {
	root := parseHTML(t, "<p>one</p><p>two</p>")

	it := Collect(root)
	assert.Len(t, it.Nodes(), 2)
	assert.Nil(t, it.Next())

	// 重新调用 Collect 从头开始
	assert.Len(t, Collect(root).Nodes(), 2)
}

func TestCollectDeeplyNestedTree(t *testing.T) {
	const depth = 100000

	root := &html.Node{Type: html.DocumentNode}
	cur := root
	for i := 0; i < depth; i++ {
		div := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
		cur.AppendChild(div)
		cur = div
	}
	cur.AppendChild(&html.Node{Type: html.TextNode, Data: "bottom"})

	nodes := Collect(root).Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, "bottom", nodes[0].Data)
}

func TestCollectHandBuiltNodesWithoutAtom(t *testing.T) {
	root := &html.Node{Type: html.ElementNode, Data: "DIV"}
	script := &html.Node{Type: html.ElementNode, Data: "SCRIPT"}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: "hidden"})
	root.AppendChild(script)
	root.AppendChild(&html.Node{Type: html.TextNode, Data: "shown"})

	assert.Equal(t, []string{"shown"}, nodeTexts(Collect(root).Nodes()))
}

func TestCollectNilRoot(t *testing.T) {
	assert.Nil(t, Collect(nil).Next())
}
