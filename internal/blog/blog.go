// Package blog turns a group's blog posts into pages: a multi-post index that
// becomes the group root and one hidden page per post.
package blog

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/pagetree"
	"git.home.luguber.info/inful/seriesgen/internal/render"
)

const (
	previewLines = 10
	indexTitle   = "Blog"
	// IndexRecordID identifies the synthesized index page.
	IndexRecordID = "blog"
	threadAnchor  = `<div id="disqus_thread" style="min-height: 100px"></div>`
)

// Builder renders blog indexes.
type Builder struct {
	templates render.TemplateStore
	md        *render.Markdown
}

// NewBuilder returns a Builder using the blog-post template from templates.
func NewBuilder(templates render.TemplateStore, md *render.Markdown) *Builder {
	if md == nil {
		md = render.NewMarkdown()
	}
	return &Builder{templates: templates, md: md}
}

// Slug is the page name of a post: its publication date and lower-cased,
// hyphenated title.
func Slug(post content.Record) string {
	date := post.Meta.Blog().Published.Format("2006-01-02")
	return date + "_" + strings.ReplaceAll(strings.ToLower(post.Meta.Title()), " ", "-")
}

// Sort orders posts pinned first, then newest first.
func Sort(posts []content.Record) []content.Record {
	out := slices.Clone(posts)
	slices.SortStableFunc(out, func(a, b content.Record) int {
		ab, bb := a.Meta.Blog(), b.Meta.Blog()
		if ab.Pinned != bb.Pinned {
			if ab.Pinned {
				return -1
			}
			return 1
		}
		return cmp.Compare(bb.Published.Unix(), ab.Published.Unix())
	})
	return out
}

// Preview keeps the first lines of body, linking to the full post when
// anything was cut.
func Preview(body, href string) string {
	lines := strings.Split(body, "\n")
	if len(lines) > previewLines {
		lines = append(lines[:previewLines:previewLines], "", `<a href="`+href+`">Read More...</a>`)
	}
	return strings.Join(lines, "\n")
}

// Index renders the multi-post index body.
func (b *Builder) Index(posts []content.Record) (string, error) {
	var sb strings.Builder
	for _, post := range posts {
		meta := post.Meta.Blog()
		href := Slug(post)
		preview, err := b.md.Convert(render.EngineFootnotes, Preview(post.Body, href))
		if err != nil {
			return "", errors.WrapError(err, errors.CategoryBuild, "render blog preview").
				WithContext("record", post.ID).Build()
		}
		html, err := b.templates.Execute(render.TemplateBlogPost, map[string]any{
			"date":    meta.Published.Format("2006-01-02 15:04"),
			"pinned":  meta.Pinned,
			"content": preview,
			"title":   post.Meta.Title(),
			"url":     href,
		})
		if err != nil {
			return "", err
		}
		sb.WriteString(html)
	}
	sb.WriteString(threadAnchor)
	return sb.String(), nil
}

// Attach grafts the blog onto root: the index page becomes the new root,
// root's children move under it and every post is added as a hidden child.
// With no posts root is returned unchanged.
func (b *Builder) Attach(root *pagetree.Node, posts []content.Record) (*pagetree.Node, error) {
	if len(posts) == 0 {
		return root, nil
	}
	posts = Sort(posts)
	body, err := b.Index(posts)
	if err != nil {
		return nil, err
	}

	index := pagetree.NewRoot(root.Group)
	index.Insert(nil, content.Record{
		ID:      IndexRecordID,
		GroupID: root.Group.ID,
		Meta:    content.Meta{content.MetaTitle: indexTitle, content.MetaHideNav: true},
		Body:    body,
	})
	index.Multipost = true

	newRoot, err := root.Splice(index)
	if err != nil {
		return nil, err
	}
	for _, post := range posts {
		meta := maps.Clone(post.Meta)
		meta[content.MetaHideNav] = true
		post.Meta = meta
		newRoot.Insert([]pagetree.Segment{pagetree.StrSegment(Slug(post))}, post)
	}
	return newRoot, nil
}
