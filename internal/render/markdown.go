package render

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// Engine selects a markdown conversion flavor.
type Engine int

const (
	// EngineHTML passes raw HTML through.
	EngineHTML Engine = iota
	// EngineEscaped escapes raw HTML so it shows as text.
	EngineEscaped
	// EngineFootnotes passes raw HTML through and supports footnotes.
	EngineFootnotes
)

// Markdown holds one goldmark instance per engine. goldmark instances are
// safe for concurrent use.
type Markdown struct {
	engines map[Engine]goldmark.Markdown
}

// NewMarkdown builds the engines.
func NewMarkdown() *Markdown {
	return &Markdown{engines: map[Engine]goldmark.Markdown{
		EngineHTML: goldmark.New(
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		EngineEscaped: goldmark.New(
			goldmark.WithRendererOptions(
				renderer.WithNodeRenderers(util.Prioritized(escapedHTML{}, 100)),
			),
		),
		EngineFootnotes: goldmark.New(
			goldmark.WithExtensions(extension.Footnote),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}}
}

// Convert renders src to HTML with engine.
func (m *Markdown) Convert(engine Engine, src string) (string, error) {
	md, ok := m.engines[engine]
	if !ok {
		md = m.engines[EngineHTML]
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// escapedHTML renders raw HTML blocks and inline tags as escaped text.
type escapedHTML struct{}

func (escapedHTML) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindHTMLBlock, renderEscapedBlock)
	reg.Register(ast.KindRawHTML, renderEscapedInline)
}

func renderEscapedBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.HTMLBlock)
	if entering {
		_, _ = w.WriteString("<p>")
		lines := n.Lines()
		for i := range lines.Len() {
			line := lines.At(i)
			_, _ = w.Write(util.EscapeHTML(line.Value(source)))
		}
		return ast.WalkContinue, nil
	}
	if n.HasClosure() {
		_, _ = w.Write(util.EscapeHTML(n.ClosureLine.Value(source)))
	}
	_, _ = w.WriteString("</p>\n")
	return ast.WalkContinue, nil
}

func renderEscapedInline(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	n := node.(*ast.RawHTML)
	for i := range n.Segments.Len() {
		seg := n.Segments.At(i)
		_, _ = w.Write(util.EscapeHTML(seg.Value(source)))
	}
	return ast.WalkSkipChildren, nil
}
