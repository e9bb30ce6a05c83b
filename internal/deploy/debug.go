package deploy

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/incremental"
	"git.home.luguber.info/inful/seriesgen/internal/pagetree"
	"git.home.luguber.info/inful/seriesgen/internal/site"
)

// Debug renders into memory for the debug server. It keeps the trees of
// every group so the site can be regenerated after template changes without
// refetching content.
type Debug struct {
	fs  afero.Fs
	mat Materializer

	mu     sync.Mutex
	last   *incremental.Fingerprints
	trees  map[string]*pagetree.Node
	groups []content.Group
}

// NewDebug returns an empty in-memory target.
func NewDebug(m Materializer) *Debug {
	return &Debug{fs: afero.NewMemMapFs(), mat: m, trees: map[string]*pagetree.Node{}}
}

func (*Debug) Name() string { return "debug" }

// FS is the rendered site.
func (t *Debug) FS() afero.Fs { return t.fs }

func (t *Debug) PresentGroups(context.Context) (*incremental.Fingerprints, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return nil, nil
	}
	fp := t.last.Clone()
	return &fp, nil
}

func (t *Debug) Generate(ctx context.Context, trees []*pagetree.Node, groups []content.Group) (site.Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	present := map[string]bool{}
	for _, g := range groups {
		present[g.ID] = true
	}
	for id := range t.trees {
		if !present[id] {
			delete(t.trees, id)
		}
	}
	for _, tree := range trees {
		if tree.Group != nil {
			t.trees[tree.Group.ID] = tree
		}
	}
	t.groups = slices.Clone(groups)
	return t.mat.write(ctx, t.fs, trees, groups, t.last != nil)
}

func (t *Debug) Finalize(_ context.Context, fp incremental.Fingerprints) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := fp.Clone()
	t.last = &cp
	return nil
}

// Regenerate rewrites every remembered tree, static files included.
func (t *Debug) Regenerate(ctx context.Context) (site.Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mat.write(ctx, t.fs, t.treesLocked(), t.groups, false)
}

// Trees returns the remembered trees in group order.
func (t *Debug) Trees() []*pagetree.Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.treesLocked()
}

func (t *Debug) treesLocked() []*pagetree.Node {
	out := make([]*pagetree.Node, 0, len(t.trees))
	seen := map[string]bool{}
	for _, g := range t.groups {
		if tree, ok := t.trees[g.ID]; ok {
			out = append(out, tree)
			seen[g.ID] = true
		}
	}
	for _, id := range slices.Sorted(maps.Keys(t.trees)) {
		if !seen[id] {
			out = append(out, t.trees[id])
		}
	}
	return out
}
