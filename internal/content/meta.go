package content

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/seriesgen/internal/ordering"
)

// Well-known metadata keys.
const (
	MetaTitle    = "title"
	MetaNavTitle = "nav_title"
	MetaPath     = "path"
	MetaRenderer = "renderer_t"
	MetaOrder    = "order"
	MetaDeleted  = "deleted"
	MetaStatus   = "status"
	MetaBlog     = "blog"
	MetaHideNav  = "hide_nav"
)

// DefaultRenderer is the renderer chain of a record without one.
const DefaultRenderer = "markdown"

// Meta is a record's metadata map.
type Meta map[string]any

// Get returns the raw value at key.
func (m Meta) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// String returns the value at key in string form, or "" when absent or nil.
func (m Meta) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool reports the truthiness of the value at key.
func (m Meta) Bool(key string) bool {
	switch v := m[key].(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case map[string]any:
		return len(v) > 0
	default:
		n, ok := ordering.TryInt(v, 0)
		return !ok || n != 0
	}
}

// Title is the page title, empty when unset.
func (m Meta) Title() string { return m.String(MetaTitle) }

// NavTitle is the label used in navigation instead of the title.
func (m Meta) NavTitle() string { return m.String(MetaNavTitle) }

// Path is the record's path below its parent, empty for the group root.
func (m Meta) Path() string { return m.String(MetaPath) }

// Deleted reports whether the record is marked deleted.
func (m Meta) Deleted() bool { return m.Bool(MetaDeleted) }

// HideNav reports whether the page is left out of navigation.
func (m Meta) HideNav() bool { return m.Bool(MetaHideNav) }

// Renderer returns the `+`-joined renderer chain, defaulting to markdown.
func (m Meta) Renderer() string {
	if _, ok := m[MetaRenderer]; !ok {
		return DefaultRenderer
	}
	return m.String(MetaRenderer)
}

// Order returns the coerced order value.
func (m Meta) Order() ordering.OrderValue {
	return ordering.OrderOf(m[MetaOrder])
}

// Status returns the numeric status gate value.
func (m Meta) Status() (int, bool) {
	v, ok := m[MetaStatus]
	if !ok {
		return 0, false
	}
	return ordering.TryInt(v, 0)
}

// IsBlog reports whether the record is a blog post.
func (m Meta) IsBlog() bool { return m.Bool(MetaBlog) }

// BlogMeta is the blog section of a post's metadata.
type BlogMeta struct {
	Published time.Time
	Pinned    bool
}

// Blog decodes the blog section. published_date is unix seconds.
func (m Meta) Blog() BlogMeta {
	var out BlogMeta
	section, _ := m[MetaBlog].(map[string]any)
	if section == nil {
		return out
	}
	sub := Meta(section)
	if secs, ok := ordering.TryInt(sub["published_date"], 0); ok {
		out.Published = time.Unix(int64(secs), 0).UTC()
	}
	out.Pinned = sub.Bool("pinned")
	return out
}
