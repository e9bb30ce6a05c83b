package server

import (
	"context"

	"git.home.luguber.info/inful/seriesgen/internal/blog"
	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/pagetree"
	"git.home.luguber.info/inful/seriesgen/internal/render"
	"git.home.luguber.info/inful/seriesgen/internal/site"
)

// Pages renders one record on demand from the current store contents.
type Pages struct {
	store    content.Store
	renderer site.Renderer
	blog     *blog.Builder
	filter   content.Filter
}

// NewPages returns a single page renderer. b may be nil.
func NewPages(store content.Store, r site.Renderer, b *blog.Builder, f content.Filter) *Pages {
	return &Pages{store: store, renderer: r, blog: b, filter: f}
}

// Render builds the tree of the record's group and renders the record's node.
func (p *Pages) Render(ctx context.Context, id string, mode render.Mode) (string, error) {
	rec, err := p.store.Record(ctx, id)
	if err != nil {
		return "", err
	}
	groups, err := p.store.Groups(ctx, content.Filter{})
	if err != nil {
		return "", err
	}
	var group *content.Group
	for i := range groups {
		if groups[i].ID == rec.GroupID {
			group = &groups[i]
			break
		}
	}
	if group == nil {
		return "", errors.NotFoundError("page not found").WithContext("id", id).Build()
	}

	records, err := p.store.Records(ctx, []string{group.ID}, p.filter)
	if err != nil {
		return "", err
	}
	pages, posts := records, []content.Record(nil)
	if p.blog != nil {
		pages, posts = content.SplitBlog(records)
	}
	root, err := pagetree.Build(group, pages)
	if err != nil {
		return "", err
	}
	if p.blog != nil {
		if root, err = p.blog.Attach(root, posts); err != nil {
			return "", err
		}
	}

	n := root.FindByRecordID(id)
	if n == nil {
		return "", errors.NotFoundError("page not found").WithContext("id", id).Build()
	}
	return p.renderer.Render(n, mode, render.OptionsFor(n))
}
