package pagetranslate

import (
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// styleDecl 单条 CSS 声明
type styleDecl struct {
	prop      string
	value     string
	important bool
}

// inlineStyle 元素 style 属性的有序声明列表
type inlineStyle struct {
	decls []styleDecl
	// raw 解析失败时原样保留的 style 文本，新声明追加在它后面
	raw string
}

// parseInlineStyle 用 douceur 解析 style 属性
func parseInlineStyle(s string) *inlineStyle {
	st := &inlineStyle{}
	text := strings.TrimSpace(s)
	if text == "" {
		return st
	}
	// 最后一条声明没有分号时 douceur 不会填充它的值
	if !strings.HasSuffix(text, ";") {
		text += ";"
	}

	decls, err := parser.ParseDeclarations(text)
	if err != nil {
		st.raw = text
		return st
	}
	for _, d := range decls {
		st.add(d)
	}
	return st
}

func (s *inlineStyle) add(d *css.Declaration) {
	prop := strings.ToLower(strings.TrimSpace(d.Property))
	if prop == "" {
		return
	}
	value := strings.TrimSpace(d.Value)
	important := d.Important
	if v, ok := strings.CutSuffix(value, "!important"); ok {
		value, important = strings.TrimSpace(v), true
	}

	decl := styleDecl{prop: prop, value: value, important: important}
	for i := range s.decls {
		if s.decls[i].prop == prop {
			s.decls[i] = decl
			return
		}
	}
	s.decls = append(s.decls, decl)
}

// Get 返回属性值，不含 !important
func (s *inlineStyle) Get(prop string) string {
	for _, d := range s.decls {
		if d.prop == prop {
			return d.value
		}
	}
	return ""
}

// Set 覆盖或追加属性，保持原有声明顺序
func (s *inlineStyle) Set(prop, value string) {
	value = strings.TrimSpace(value)
	for i := range s.decls {
		if s.decls[i].prop == prop {
			s.decls[i] = styleDecl{prop: prop, value: value}
			return
		}
	}
	s.decls = append(s.decls, styleDecl{prop: prop, value: value})
}

func (s *inlineStyle) String() string {
	parts := make([]string, 0, len(s.decls)+1)
	if s.raw != "" {
		parts = append(parts, strings.TrimSuffix(s.raw, ";"))
	}
	for _, d := range s.decls {
		decl := d.prop + ": " + d.value
		if d.important {
			decl += " !important"
		}
		parts = append(parts, decl)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + ";"
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// elementStyle 读取元素的内联样式
func elementStyle(n *html.Node) *inlineStyle {
	return parseInlineStyle(getAttr(n, "style"))
}

// blockDisplayTags HTML 默认样式表中 display: block 的元素
var blockDisplayTags = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Body: true, atom.Center: true, atom.Details: true, atom.Dialog: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Fieldset: true, atom.Figcaption: true, atom.Figure: true, atom.Footer: true,
	atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true,
	atom.Hgroup: true, atom.Hr: true, atom.Html: true, atom.Legend: true,
	atom.Main: true, atom.Menu: true, atom.Nav: true, atom.Ol: true,
	atom.P: true, atom.Pre: true, atom.Section: true, atom.Summary: true,
	atom.Ul: true,
}

// defaultDisplay 返回元素在默认样式表中的 display 值
func defaultDisplay(n *html.Node) string {
	a := tagAtom(n)
	switch {
	case a == 0:
		return ""
	case blockDisplayTags[a]:
		return "block"
	}
	switch a {
	case atom.Li:
		return "list-item"
	case atom.Td, atom.Th:
		return "table-cell"
	case atom.Tr:
		return "table-row"
	case atom.Table:
		return "table"
	case atom.Thead:
		return "table-header-group"
	case atom.Tbody:
		return "table-row-group"
	case atom.Tfoot:
		return "table-footer-group"
	case atom.Caption:
		return "table-caption"
	case atom.Button, atom.Select, atom.Textarea, atom.Input:
		return "inline-block"
	case atom.Head, atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Title, atom.Meta, atom.Link:
		return "none"
	}
	return "inline"
}

// computedDisplay 内联声明优先，否则退回默认样式表
func computedDisplay(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	if d := elementStyle(n).Get("display"); d != "" {
		return strings.ToLower(d)
	}
	return defaultDisplay(n)
}

func isFlexContainer(n *html.Node) bool {
	switch computedDisplay(n) {
	case "flex", "inline-flex":
		return true
	}
	return false
}
