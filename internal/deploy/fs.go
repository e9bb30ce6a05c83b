package deploy

import (
	"context"
	stderrors "errors"
	"io/fs"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/seriesgen/internal/cache"
	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/incremental"
	"git.home.luguber.info/inful/seriesgen/internal/pagetree"
	"git.home.luguber.info/inful/seriesgen/internal/site"
)

// KeyFSLastRun stores the fingerprints of the last filesystem build.
const KeyFSLastRun = "fs_lastrun"

// FS writes into an output directory.
type FS struct {
	fs      afero.Fs
	cache   cache.Cache
	mat     Materializer
	rebuild bool
}

// NewFS returns a target writing to the root of fsys, usually a base path
// filesystem over the output directory.
func NewFS(fsys afero.Fs, c cache.Cache, m Materializer) *FS {
	return &FS{fs: fsys, cache: c, mat: m}
}

// NewOutputDir returns an FS target for dir on the host filesystem.
func NewOutputDir(dir string, c cache.Cache, m Materializer) *FS {
	return NewFS(afero.NewBasePathFs(afero.NewOsFs(), dir), c, m)
}

func (*FS) Name() string { return "fs" }

// PresentGroups returns the stored fingerprints unless the output directory
// is missing or empty, in which case everything is rebuilt.
func (t *FS) PresentGroups(ctx context.Context) (*incremental.Fingerprints, error) {
	t.rebuild = false
	fp, err := loadFingerprints(ctx, t.cache, KeyFSLastRun)
	if err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(t.fs, "/")
	if stderrors.Is(err, fs.ErrNotExist) || (err == nil && len(entries) == 0) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read output directory").Build()
	}
	t.rebuild = fp != nil && len(*fp) > 0
	return fp, nil
}

func (t *FS) Generate(ctx context.Context, trees []*pagetree.Node, groups []content.Group) (site.Stats, error) {
	if err := t.fs.MkdirAll("/", 0o755); err != nil {
		return site.Stats{}, errors.WrapError(err, errors.CategoryFileSystem, "create output directory").Build()
	}
	return t.mat.write(ctx, t.fs, trees, groups, t.rebuild)
}

func (t *FS) Finalize(ctx context.Context, fp incremental.Fingerprints) error {
	return storeFingerprints(ctx, t.cache, KeyFSLastRun, fp)
}
