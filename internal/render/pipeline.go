package render

import (
	"log/slog"
	"strings"
	"sync"

	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/logfields"
	"git.home.luguber.info/inful/seriesgen/internal/pagetree"
	"git.home.luguber.info/inful/seriesgen/internal/preproc"
)

// Renderer chain tags.
const (
	TagPreproc          = "preproc"
	TagMarkdown         = "markdown"
	TagMarkdownMistune  = "markdown-mistune"
	TagMarkdownNoHTML   = "markdown-mistune-nohtml"
	TagMarkdownMarkdown = "markdown-markdown"
	TagPrecode          = "precode"
)

// markdownTags in the order they are tried. Only the first present tag
// converts the body.
var markdownTags = []struct {
	tag    string
	engine Engine
}{
	{TagMarkdown, EngineHTML},
	{TagMarkdownMistune, EngineHTML},
	{TagMarkdownNoHTML, EngineEscaped},
	{TagMarkdownMarkdown, EngineFootnotes},
}

func knownTag(tag string) bool {
	if tag == TagPreproc || tag == TagPrecode {
		return true
	}
	for _, m := range markdownTags {
		if m.tag == tag {
			return true
		}
	}
	return false
}

// Mode selects full page or fragment output.
type Mode int

const (
	// ModeFull wraps the fragment in the page shell.
	ModeFull Mode = iota
	// ModeInner returns the wrapped content fragment only.
	ModeInner
)

// RenderOptions names the shell templates. An empty Inner skips the inner
// template.
type RenderOptions struct {
	Outer string
	Inner string
}

// DefaultOptions are used for regular pages.
var DefaultOptions = RenderOptions{Outer: TemplatePage, Inner: TemplateChapterInner}

// OptionsFor picks the shell for n.
func OptionsFor(n *pagetree.Node) RenderOptions {
	if n.Multipost {
		return RenderOptions{Outer: TemplatePage}
	}
	return DefaultOptions
}

// Options configures a Pipeline.
type Options struct {
	Prefix pagetree.Prefix
	// Domain is the canonical site origin used for discussion URLs.
	Domain     string
	Discussion bool
	Analytics  bool
	Social     bool
}

// Pipeline renders nodes. It is safe for concurrent use.
type Pipeline struct {
	opts      Options
	templates TemplateStore
	pre       *preproc.Preprocessor
	md        *Markdown

	navMu    sync.Mutex
	navGroup string
	navRoot  *pagetree.Node
	navHTML  string

	warned sync.Map
}

// New returns a Pipeline. pre may be nil, in which case the preproc tag is a
// no-op.
func New(opts Options, templates TemplateStore, pre *preproc.Preprocessor, md *Markdown) *Pipeline {
	if md == nil {
		md = NewMarkdown()
	}
	return &Pipeline{opts: opts, templates: templates, pre: pre, md: md}
}

// Prefix returns the configured URL prefix.
func (p *Pipeline) Prefix() pagetree.Prefix { return p.opts.Prefix }

// Markdown exposes the markdown engines.
func (p *Pipeline) Markdown() *Markdown { return p.md }

// Templates exposes the template store.
func (p *Pipeline) Templates() TemplateStore { return p.templates }

// Content returns the node's wrapped content fragment.
func (p *Pipeline) Content(n *pagetree.Node) (string, error) {
	for _, tag := range n.Renderers {
		if !knownTag(tag) {
			if _, seen := p.warned.LoadOrStore(tag, true); !seen {
				slog.Debug("Ignoring unknown renderer tag", logfields.Renderer(tag))
			}
		}
	}

	usedMarkdown := false
	body := ""
	if !n.IsIndex {
		body = n.Body
		if n.HasRenderer(TagPreproc) && p.pre != nil {
			body = p.pre.Render(body)
		}
		for _, m := range markdownTags {
			if !n.HasRenderer(m.tag) {
				continue
			}
			out, err := p.md.Convert(m.engine, body)
			if err != nil {
				return "", errors.WrapError(err, errors.CategoryBuild, "convert markdown").
					WithContext("path", n.PathString()).Build()
			}
			body = out
			usedMarkdown = true
			break
		}
	}
	return wrap(body, n.HasRenderer(TagPrecode), usedMarkdown), nil
}

func wrap(body string, precode, markdown bool) string {
	var b strings.Builder
	switch {
	case precode:
		b.WriteString("<pre><code>")
		b.WriteString(body)
		b.WriteString("</code></pre>")
	case markdown:
		b.WriteString("<div>")
		b.WriteString(body)
		b.WriteString("</div>")
	default:
		b.WriteString("<pre>")
		b.WriteString(body)
		b.WriteString("</pre>")
	}
	return b.String()
}

// Render produces the node's HTML in the given mode.
func (p *Pipeline) Render(n *pagetree.Node, mode Mode, ro RenderOptions) (string, error) {
	fragment, err := p.Content(n)
	if err != nil {
		return "", err
	}
	if mode == ModeInner {
		return fragment, nil
	}

	vars, err := p.Variables(n, fragment)
	if err != nil {
		return "", err
	}
	if ro.Inner != "" {
		inner, err := p.templates.Execute(ro.Inner, vars)
		if err != nil {
			return "", err
		}
		vars["content"] = inner
	}
	outer := ro.Outer
	if outer == "" {
		outer = TemplatePage
	}
	return p.templates.Execute(outer, vars)
}

// Variables builds the template variable set for n around fragment.
func (p *Pipeline) Variables(n *pagetree.Node, fragment string) (map[string]any, error) {
	nav, err := p.navigation(n)
	if err != nil {
		return nil, err
	}
	title := n.DisplayTitle()
	if n.IsIndex {
		title = "Index"
	}
	headerURL := ""
	if n.Group != nil {
		headerURL = n.Group.HeaderURL
	}
	vars := map[string]any{
		"content":     fragment,
		"title":       title,
		"header_url":  headerURL,
		"series_url":  n.GroupURL(p.opts.Prefix),
		"rootPath":    p.opts.Prefix.URL,
		"parent_path": "..",
		"navbar":      nav,
	}

	if p.opts.Discussion {
		d, err := p.templates.Execute(TemplateDiscussion, map[string]any{"full_path": p.DiscussionURL(n)})
		if err != nil {
			return nil, err
		}
		vars["disqus"] = d
	}
	if p.opts.Analytics {
		a, err := p.templates.Raw(TemplateAnalytics)
		if err != nil {
			return nil, err
		}
		vars["google_analytics"] = a
	}
	if p.opts.Social {
		s, err := p.templates.Raw(TemplateSocial)
		if err != nil {
			return nil, err
		}
		vars["social_media"] = s
	}
	return vars, nil
}

// DiscussionURL is the canonical absolute URL of n: the domain, the group's
// path part, then the node path, always ending in a slash. The group part is
// present even when group prefixes are off.
func (p *Pipeline) DiscussionURL(n *pagetree.Node) string {
	groupPart := ""
	if n.Group != nil {
		groupPart = n.Group.PathPart
	}
	u := strings.TrimSuffix(p.opts.Domain, "/") + "/" + groupPart + "/" + n.PathString()
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}

// navigation returns the cached fragment for n's group tree, rebuilding it
// when the group or tree differs from the cached one.
func (p *Pipeline) navigation(n *pagetree.Node) (string, error) {
	root := n.Root()
	id := ""
	if n.Group != nil {
		id = n.Group.ID
	}

	p.navMu.Lock()
	defer p.navMu.Unlock()
	if p.navRoot == root && p.navGroup == id {
		return p.navHTML, nil
	}
	nav, err := Navigation(root, p.opts.Prefix)
	if err != nil {
		return "", err
	}
	p.navGroup, p.navRoot, p.navHTML = id, root, nav
	return nav, nil
}

// ResetNavigation drops the cached navigation.
func (p *Pipeline) ResetNavigation() {
	p.navMu.Lock()
	p.navGroup, p.navRoot, p.navHTML = "", nil, ""
	p.navMu.Unlock()
}
