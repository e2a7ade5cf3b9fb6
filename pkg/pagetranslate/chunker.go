package pagetranslate

import (
	"iter"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMaxChunkChars 单个分块的最大字符数
const DefaultMaxChunkChars = 1000

// blockTags 块级父元素会强制开启新的分块
var blockTags = map[atom.Atom]bool{
	atom.P:   true,
	atom.Div: true,
	atom.H1:  true,
	atom.H2:  true,
	atom.H3:  true,
	atom.H4:  true,
	atom.H5:  true,
	atom.H6:  true,
	atom.Li:  true,
	atom.Td:  true,
	atom.Th:  true,
}

// Chunk 一次翻译请求对应的文本节点集合
type Chunk struct {
	// Text 成员节点去除首尾空白后以单个空格拼接的文本
	Text string
	// Nodes 按文档顺序排列的成员节点
	Nodes []*html.Node
}

// Len 返回分块文本的字符数
func (c Chunk) Len() int {
	return utf8.RuneCountInString(c.Text)
}

// Chunker 将文本节点序列切分为分块
type Chunker struct {
	maxChars int
}

// NewChunker 创建分块器，maxChars <= 0 时使用 DefaultMaxChunkChars
func NewChunker(maxChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}
	return &Chunker{maxChars: maxChars}
}

// MaxChars 返回分块的字符上限
func (c *Chunker) MaxChars() int {
	return c.maxChars
}

// Chunks 按顺序把节点划分为分块，每个节点恰好属于一个分块。
//
// 分块文本只有在最后一个节点自身超过上限时才会超过 maxChars，超长节点不会被拆分。
func (c *Chunker) Chunks(nodes iter.Seq[*html.Node]) []Chunk {
	var (
		chunks []Chunk
		open   openChunk
	)

	closeOpen := func() {
		if len(open.nodes) > 0 {
			chunks = append(chunks, Chunk{Text: open.text.String(), Nodes: open.nodes})
		}
		open = openChunk{}
	}

	for n := range nodes {
		text := strings.TrimSpace(n.Data)
		textLen := utf8.RuneCountInString(text)

		// 块级边界
		if isBlockElement(n.Parent) && open.length > 0 {
			closeOpen()
		}

		// 放不下的普通节点另起一块；超长节点仍然追加到当前分块
		if open.length > 0 && textLen <= c.maxChars && open.length+1+textLen > c.maxChars {
			closeOpen()
		}

		open.add(n, text, textLen)

		// 长度边界
		if open.length > c.maxChars {
			closeOpen()
		}
	}
	closeOpen()

	return chunks
}

// ChunkNodes 是 Chunks 的切片版本
func (c *Chunker) ChunkNodes(nodes []*html.Node) []Chunk {
	return c.Chunks(func(yield func(*html.Node) bool) {
		for _, n := range nodes {
			if !yield(n) {
				return
			}
		}
	})
}

type openChunk struct {
	text   strings.Builder
	length int
	nodes  []*html.Node
}

func (o *openChunk) add(n *html.Node, text string, textLen int) {
	if o.length > 0 {
		o.text.WriteByte(' ')
		o.length++
	}
	o.text.WriteString(text)
	o.length += textLen
	o.nodes = append(o.nodes, n)
}

func isBlockElement(n *html.Node) bool {
	return blockTags[tagAtom(n)]
}
