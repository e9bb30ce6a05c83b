// Package site materializes rendered page trees onto a filesystem.
package site

import (
	"context"
	"html"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/seriesgen/internal/assets"
	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/logfields"
	"git.home.luguber.info/inful/seriesgen/internal/pagetree"
	"git.home.luguber.info/inful/seriesgen/internal/render"
)

const (
	indexFile = "index.html"
	rawFile   = "raw.md"
	rawDir    = "raw"
	// StaticDir is the output directory kept across incremental rebuilds.
	StaticDir = "static"
	// AssetsDir receives the images referenced by rendered pages.
	AssetsDir = "assets"
)

// Renderer renders a single node.
type Renderer interface {
	Render(n *pagetree.Node, mode render.Mode, ro render.RenderOptions) (string, error)
}

// WriteTree writes root and all of its descendants below dir. Every node gets
// an index.html; with includeRaw, content nodes also get raw.md and a
// raw/index.html showing the unrendered body. It returns the number of pages
// written.
func WriteTree(fsys afero.Fs, dir string, root *pagetree.Node, r Renderer, includeRaw bool) (int, error) {
	pages := 0
	err := root.Walk(func(n *pagetree.Node) error {
		nodeDir := path.Join(append([]string{dir}, segmentNames(n.Path)...)...)
		if err := fsys.MkdirAll(nodeDir, 0o755); err != nil {
			return writeError(err, nodeDir)
		}
		page, err := r.Render(n, render.ModeFull, render.OptionsFor(n))
		if err != nil {
			return errors.WrapError(err, errors.CategoryBuild, "render page").
				WithContext("path", n.PathString()).
				WithContext("record", n.RecordID).Build()
		}
		if err := writeFile(fsys, path.Join(nodeDir, indexFile), page); err != nil {
			return err
		}
		pages++

		if !includeRaw || n.IsIndex {
			return nil
		}
		if err := writeFile(fsys, path.Join(nodeDir, rawFile), n.Body); err != nil {
			return err
		}
		rawPath := path.Join(nodeDir, rawDir)
		if err := fsys.MkdirAll(rawPath, 0o755); err != nil {
			return writeError(err, rawPath)
		}
		return writeFile(fsys, path.Join(rawPath, indexFile), "<pre>"+html.EscapeString(n.Body)+"</pre>")
	})
	return pages, err
}

func segmentNames(segs []pagetree.Segment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.String()
	}
	return out
}

// Options controls Generate.
type Options struct {
	// Dir is the output subdirectory, usually the configured URL prefix.
	Dir string
	// GroupPrefix places each group under its own path part and adds a
	// group index page.
	GroupPrefix bool
	IncludeRaw  bool
	// KeepStatic leaves previously copied static files alone and skips the
	// static copy. Set on incremental rebuilds.
	KeepStatic bool
	// StaticFS and StaticSource name the static tree copied into the output.
	StaticFS     afero.Fs
	StaticSource string
	// Images, when set, has its used images copied to AssetsDir.
	Images *assets.Images
	// IndexHeading is raw HTML placed above the group list.
	IndexHeading string
}

// Stats summarizes a Generate call.
type Stats struct {
	Pages  int
	Groups int
	Static int
	Assets int
}

// Generate writes trees into fsys. groups lists every group currently
// present; with GroupPrefix it drives the group index page and the removal
// of directories belonging to groups that no longer exist. Without
// GroupPrefix all groups share the output root, so trees must hold every
// group.
func Generate(ctx context.Context, fsys afero.Fs, trees []*pagetree.Node, groups []content.Group, r Renderer, opts Options) (Stats, error) {
	var stats Stats
	base := path.Join("/", opts.Dir)
	if err := fsys.MkdirAll(base, 0o755); err != nil {
		return stats, writeError(err, base)
	}
	if err := clean(fsys, base, trees, groups, opts); err != nil {
		return stats, err
	}

	for _, tree := range trees {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		dir := base
		if opts.GroupPrefix && tree.Group != nil {
			dir = path.Join(base, tree.Group.PathPart)
		}
		n, err := WriteTree(fsys, dir, tree, r, opts.IncludeRaw)
		if err != nil {
			return stats, err
		}
		stats.Pages += n
		stats.Groups++
		slog.Debug("Wrote group", logfields.Group(groupName(tree)), logfields.Count(n), logfields.Path(dir))
	}

	if opts.GroupPrefix {
		if err := writeFile(fsys, path.Join(base, indexFile), GroupIndex(opts.IndexHeading, groups)); err != nil {
			return stats, err
		}
	}

	if !opts.KeepStatic && opts.StaticSource != "" && opts.StaticFS != nil {
		n, err := CopyTree(opts.StaticFS, opts.StaticSource, fsys, base)
		if err != nil {
			return stats, err
		}
		stats.Static = n
	}

	if opts.Images != nil {
		n, err := opts.Images.CopyUsed(fsys, path.Join(base, AssetsDir))
		if err != nil {
			return stats, err
		}
		stats.Assets = n
	}
	return stats, nil
}

// Entry is a top-level entry of an output directory.
type Entry struct {
	Name string
	Dir  bool
}

// Stale returns the names among entries that a write of trees replaces or
// leaves orphaned. Without group prefixes that is every directory but a kept
// static one. With group prefixes it is the directories of the trees being
// written plus those of groups that are gone. Root files are stale only when
// static files are not kept.
func Stale(entries []Entry, trees []*pagetree.Node, groups []content.Group, opts Options) []string {
	rewrite := map[string]bool{}
	for _, t := range trees {
		if t.Group != nil {
			rewrite[t.Group.PathPart] = true
		}
	}
	present := map[string]bool{}
	for _, g := range groups {
		present[g.PathPart] = true
	}

	var out []string
	for _, e := range entries {
		switch {
		case !e.Dir && opts.KeepStatic:
			continue
		case e.Name == StaticDir && opts.KeepStatic:
			continue
		case opts.GroupPrefix && e.Dir &&
			(e.Name == AssetsDir || e.Name == StaticDir || (present[e.Name] && !rewrite[e.Name])):
			continue
		}
		out = append(out, e.Name)
	}
	return out
}

func clean(fsys afero.Fs, base string, trees []*pagetree.Node, groups []content.Group, opts Options) error {
	infos, err := afero.ReadDir(fsys, base)
	if err != nil {
		return writeError(err, base)
	}
	entries := make([]Entry, len(infos))
	for i, fi := range infos {
		entries[i] = Entry{Name: fi.Name(), Dir: fi.IsDir()}
	}
	for _, name := range Stale(entries, trees, groups, opts) {
		p := path.Join(base, name)
		if err := fsys.RemoveAll(p); err != nil {
			return writeError(err, p)
		}
	}
	return nil
}

// GroupIndex renders the page linking to every group.
func GroupIndex(heading string, groups []content.Group) string {
	var b strings.Builder
	b.WriteString(heading)
	for _, g := range groups {
		b.WriteString(`<div><a href="`)
		b.WriteString(html.EscapeString(g.PathPart))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(g.Name))
		b.WriteString("</a><br></div>")
	}
	return b.String()
}

// CopyTree copies every file below srcDir on src into dstDir on dst and
// returns the number of files copied.
func CopyTree(src afero.Fs, srcDir string, dst afero.Fs, dstDir string) (int, error) {
	copied := 0
	err := afero.Walk(src, srcDir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, srcDir), "/")
		target := path.Join(dstDir, rel)
		if info.IsDir() {
			return dst.MkdirAll(target, 0o755)
		}
		data, err := afero.ReadFile(src, p)
		if err != nil {
			return err
		}
		if err := afero.WriteFile(dst, target, data, 0o644); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		return copied, errors.WrapError(err, errors.CategoryFileSystem, "copy static files").
			WithContext("path", srcDir).Build()
	}
	return copied, nil
}

// Files lists every regular file below dir, slash separated and sorted.
func Files(fsys afero.Fs, dir string) ([]string, error) {
	var out []string
	err := afero.Walk(fsys, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, writeError(err, dir)
	}
	slices.Sort(out)
	return out, nil
}

func writeFile(fsys afero.Fs, p, data string) error {
	if err := afero.WriteFile(fsys, p, []byte(data), 0o644); err != nil {
		return writeError(err, p)
	}
	return nil
}

func writeError(err error, p string) error {
	return errors.FileSystemError("write output").WithCause(err).WithContext("path", p).Build()
}

func groupName(n *pagetree.Node) string {
	if n.Group == nil {
		return ""
	}
	return n.Group.Name
}
