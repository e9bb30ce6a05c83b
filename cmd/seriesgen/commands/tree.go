package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/incremental"
	"git.home.luguber.info/inful/seriesgen/internal/pagetree"
	"git.home.luguber.info/inful/seriesgen/internal/site"
)

// TreeCmd implements the 'tree' command.
type TreeCmd struct{}

func (t *TreeCmd) Run(_ *Global, root *CLI) error {
	ctx := context.Background()
	app, err := loadApp(ctx, root)
	if err != nil {
		return err
	}
	defer app.Close(ctx)
	return RunTree(ctx, app, os.Stdout)
}

// RunTree builds the page trees of every group and writes their outline.
func RunTree(ctx context.Context, app *App, w io.Writer) error {
	c := &treeCollector{}
	if _, err := app.Service(c).Run(ctx); err != nil {
		return err
	}
	return dumpTrees(w, c.trees)
}

func dumpTrees(w io.Writer, trees []*pagetree.Node) error {
	for _, t := range trees {
		name := ""
		if t.Group != nil {
			name = t.Group.Name
		}
		if _, err := fmt.Fprintf(w, "# %s\n", name); err != nil {
			return err
		}
		if err := t.Dump(w); err != nil {
			return err
		}
	}
	return nil
}

// treeCollector is a target that keeps the trees instead of rendering them.
type treeCollector struct {
	trees []*pagetree.Node
}

func (*treeCollector) Name() string { return "tree" }

func (*treeCollector) PresentGroups(context.Context) (*incremental.Fingerprints, error) {
	return nil, nil
}

func (c *treeCollector) Generate(_ context.Context, trees []*pagetree.Node, _ []content.Group) (site.Stats, error) {
	c.trees = trees
	return site.Stats{Groups: len(trees)}, nil
}

func (*treeCollector) Finalize(context.Context, incremental.Fingerprints) error { return nil }
