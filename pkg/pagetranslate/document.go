package pagetranslate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Document 待翻译的 HTML 页面
type Document struct {
	doc      *goquery.Document
	fragment bool
}

// LoadDocument 解析 HTML。没有 doctype、<head> 为空且不含 <html>/<body> 标签时按片段处理，
// 渲染时只输出 body 内容；其余情况输出完整文档。
func LoadDocument(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTML: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return &Document{
		doc:      doc,
		fragment: isFragment(doc, raw),
	}, nil
}

func isFragment(doc *goquery.Document, raw []byte) bool {
	for n := doc.Get(0).FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.DoctypeNode {
			return false
		}
	}
	if doc.Find("head").Children().Length() > 0 {
		return false
	}
	lower := bytes.ToLower(raw)
	return !bytes.Contains(lower, []byte("<html")) && !bytes.Contains(lower, []byte("<body"))
}

// Root 文档根节点
func (d *Document) Root() *html.Node {
	return d.doc.Get(0)
}

// Title 页面标题
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// Fragment 是否按 HTML 片段加载
func (d *Document) Fragment() bool {
	return d.fragment
}

// HTML 渲染当前文档
func (d *Document) HTML() (string, error) {
	if d.fragment {
		out, err := d.doc.Find("body").Html()
		if err != nil {
			return "", fmt.Errorf("failed to render HTML: %w", err)
		}
		return out, nil
	}
	out, err := goquery.OuterHtml(d.doc.Selection)
	if err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	return out, nil
}

// TranslateDocument 翻译整个文档
func (p *Pipeline) TranslateDocument(ctx context.Context, doc *Document, targetLang string) (*RunSummary, error) {
	return p.Run(ctx, doc.Root(), targetLang)
}

// TranslateHTML 解析、翻译并重新渲染一段 HTML
func (p *Pipeline) TranslateHTML(ctx context.Context, r io.Reader, targetLang string) (string, *RunSummary, error) {
	doc, err := LoadDocument(r)
	if err != nil {
		return "", nil, err
	}
	p.logger.Debug("已加载页面", zap.String("title", doc.Title()), zap.Bool("fragment", doc.Fragment()))

	summary, runErr := p.TranslateDocument(ctx, doc, targetLang)

	// 中途取消时已翻译的部分依然输出
	out, err := doc.HTML()
	if err != nil {
		return "", summary, err
	}
	return out, summary, runErr
}
