package render

import (
	"bytes"
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/seriesgen/internal/pagetree"
)

const voidHref = "javascript:void(0)"

var (
	segAbout   = pagetree.StrSegment("about")
	segContact = pagetree.StrSegment("contact")
)

// Navigation renders the bootstrap dropdown list items for a group's tree.
// When the group enables fixed entries, About comes first and Contact last,
// and those pages are left out of the main list.
func Navigation(root *pagetree.Node, prefix pagetree.Prefix) (string, error) {
	fixed := root.Group != nil && root.Group.FixedNavEntries
	var items []*html.Node

	if fixed {
		items = append(items, fixedEntry(root, segAbout, "About", prefix))
	}
	for _, child := range root.NavChildren() {
		if fixed && (child.PathPart == segAbout || child.PathPart == segContact) {
			continue
		}
		if child.HasChildren() {
			items = append(items, dropdown(child, prefix))
			continue
		}
		items = append(items, leaf(child, prefix))
	}
	if fixed {
		items = append(items, fixedEntry(root, segContact, "Contact", prefix))
	}

	var buf bytes.Buffer
	for _, item := range items {
		if err := html.Render(&buf, item); err != nil {
			return "", fmt.Errorf("render navigation: %w", err)
		}
	}
	return buf.String(), nil
}

func fixedEntry(root *pagetree.Node, seg pagetree.Segment, label string, prefix pagetree.Prefix) *html.Node {
	href := voidHref
	if c, ok := root.Child(seg); ok {
		href = c.FSPath(prefix)
	}
	return appendAll(element(atom.Li), appendAll(element(atom.A, "href", href), text(label)))
}

func leaf(n *pagetree.Node, prefix pagetree.Prefix) *html.Node {
	return appendAll(element(atom.Li),
		appendAll(element(atom.A, "href", n.FSPath(prefix)), text(n.DisplayTitle())))
}

func dropdown(n *pagetree.Node, prefix pagetree.Prefix) *html.Node {
	toggle := appendAll(
		element(atom.A,
			"href", "#",
			"class", "dropdown-toggle",
			"data-toggle", "dropdown",
			"role", "button",
			"aria-haspopup", "true",
			"aria-expanded", "false"),
		appendAll(element(atom.Span), text(n.DisplayTitle())),
		element(atom.Span, "class", "caret"),
	)
	menu := element(atom.Ul, "class", "dropdown-menu", "data-submenu", "")
	submenu(menu, n, prefix)
	return appendAll(element(atom.Li, "class", "dropdown"), toggle, menu)
}

func submenu(ul *html.Node, parent *pagetree.Node, prefix pagetree.Prefix) {
	for _, child := range parent.NavChildren() {
		if !child.HasChildren() {
			ul.AppendChild(leaf(child, prefix))
			continue
		}
		bullet := appendAll(
			element(atom.Span,
				"style", "z-index:2;padding:0 3px;",
				"onclick", fmt.Sprintf("window.location = %q", child.FSPath(prefix))),
			text("•"),
		)
		link := appendAll(element(atom.A, "href", voidHref), bullet, text(child.DisplayTitle()))
		inner := element(atom.Ul, "class", "dropdown-menu")
		submenu(inner, child, prefix)
		ul.AppendChild(appendAll(element(atom.Li, "class", "dropdown-submenu"), link, inner))
	}
}

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func appendAll(parent *html.Node, children ...*html.Node) *html.Node {
	for _, c := range children {
		parent.AppendChild(c)
	}
	return parent
}
