package pagetranslate

import (
	"iter"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skippedTags 这些元素的子树不参与翻译
var skippedTags = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
}

// NodeIterator 按文档先序遍历可翻译的文本节点
//
// 遍历使用显式栈，深层嵌套的文档不会撑爆调用栈。迭代器只能前进，
// 需要重新遍历时重新调用 Collect。
type NodeIterator struct {
	stack []*html.Node
}

// Collect 从 root 开始收集可翻译的文本节点
func Collect(root *html.Node) *NodeIterator {
	it := &NodeIterator{}
	if root == nil || insideSkipped(root) {
		return it
	}
	it.stack = append(it.stack, root)
	return it
}

// Next 返回下一个可翻译文本节点，遍历结束后返回 nil
func (it *NodeIterator) Next() *html.Node {
	for len(it.stack) > 0 {
		n := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]

		switch n.Type {
		case html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				return n
			}
			continue
		case html.ElementNode:
			if isSkippedElement(n) {
				continue
			}
		}

		// 逆序压栈，保证出栈顺序与文档顺序一致
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			it.stack = append(it.stack, c)
		}
	}
	return nil
}

// All 以 range-over-func 的形式消费迭代器
func (it *NodeIterator) All() iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		for n := it.Next(); n != nil; n = it.Next() {
			if !yield(n) {
				return
			}
		}
	}
}

// Nodes 一次性取出剩余的全部节点
func (it *NodeIterator) Nodes() []*html.Node {
	var nodes []*html.Node
	for n := range it.All() {
		nodes = append(nodes, n)
	}
	return nodes
}

func isSkippedElement(n *html.Node) bool {
	return skippedTags[tagAtom(n)]
}

// insideSkipped 检查节点本身或其祖先是否属于跳过的元素
func insideSkipped(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if isSkippedElement(p) {
			return true
		}
	}
	return false
}

// tagAtom 返回元素的 atom，非元素节点返回 0
func tagAtom(n *html.Node) atom.Atom {
	if n == nil || n.Type != html.ElementNode {
		return 0
	}
	if n.DataAtom != 0 {
		return n.DataAtom
	}
	// 手工构造的节点可能没有设置 DataAtom
	return atom.Lookup([]byte(strings.ToLower(n.Data)))
}
