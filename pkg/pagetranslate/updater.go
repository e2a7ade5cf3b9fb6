package pagetranslate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// StyleSnapshot 父元素在应用布局修正前的样式值
type StyleSnapshot struct {
	Width        string
	MaxWidth     string
	MinWidth     string
	WhiteSpace   string
	WordWrap     string
	OverflowWrap string
	Padding      string
	Margin       string
	Display      string
	Position     string
}

// layoutOverrides 对每个父元素都会应用的样式
var layoutOverrides = []styleDecl{
	{prop: "word-break", value: "break-word"},
	{prop: "overflow-wrap", value: "break-word"},
	{prop: "white-space", value: "normal"},
	{prop: "max-width", value: "100%"},
	{prop: "box-sizing", value: "border-box"},
}

// Updater 把翻译结果写回文本节点。
//
// 一个 Updater 只服务一次页面翻译，样式快照随之丢弃。
type Updater struct {
	snapshots map[*html.Node]StyleSnapshot
}

// NewUpdater 创建节点更新器
func NewUpdater() *Updater {
	return &Updater{snapshots: make(map[*html.Node]StyleSnapshot)}
}

// Apply 将分块的译文写入分块内的每个节点。
//
// 多节点分块中每个节点得到同一份译文，不做按节点的切分。
func (u *Updater) Apply(chunk Chunk, translated string) {
	for _, n := range chunk.Nodes {
		n.Data = PadWhitespace(n.Data, translated)
		u.mitigateLayout(n.Parent)
	}
}

// Snapshot 返回元素记录下的原始样式
func (u *Updater) Snapshot(el *html.Node) (StyleSnapshot, bool) {
	s, ok := u.snapshots[el]
	return s, ok
}

// Snapshots 已记录快照的元素数量
func (u *Updater) Snapshots() int {
	return len(u.snapshots)
}

// PadWhitespace 原文以空白开头或结尾时，在译文对应一侧补一个空格
func PadWhitespace(original, translated string) string {
	translated = strings.TrimSpace(translated)
	if r, _ := utf8.DecodeRuneInString(original); r != utf8.RuneError && unicode.IsSpace(r) {
		translated = " " + translated
	}
	if r, _ := utf8.DecodeLastRuneInString(original); r != utf8.RuneError && unicode.IsSpace(r) {
		translated += " "
	}
	return translated
}

func (u *Updater) mitigateLayout(el *html.Node) {
	if el == nil || el.Type != html.ElementNode {
		return
	}

	if _, ok := u.snapshots[el]; !ok {
		u.snapshots[el] = captureSnapshot(el)
	}

	display := computedDisplay(el)
	style := elementStyle(el)
	for _, d := range layoutOverrides {
		style.Set(d.prop, d.value)
	}

	if a := tagAtom(el); a == atom.Td || a == atom.Th {
		style.Set("width", "auto")
		style.Set("min-width", "0")
	}
	if display == "inline" {
		style.Set("display", "inline-block")
	}
	if isFlexContainer(el.Parent) {
		style.Set("flex", "1 1 auto")
	}

	setAttr(el, "style", style.String())
}

// captureSnapshot 记录元素当前生效的样式，未声明的属性取 CSS 初始值
func captureSnapshot(el *html.Node) StyleSnapshot {
	style := elementStyle(el)
	value := func(prop, initial string) string {
		if v := style.Get(prop); v != "" {
			return v
		}
		return initial
	}
	return StyleSnapshot{
		Width:        value("width", "auto"),
		MaxWidth:     value("max-width", "none"),
		MinWidth:     value("min-width", "auto"),
		WhiteSpace:   value("white-space", "normal"),
		WordWrap:     value("word-wrap", "normal"),
		OverflowWrap: value("overflow-wrap", "normal"),
		Padding:      value("padding", "0px"),
		Margin:       value("margin", "0px"),
		Display:      computedDisplay(el),
		Position:     value("position", "static"),
	}
}
