package deploy

import (
	"context"
	"encoding/json"
	"maps"
	"path"
	"strings"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/seriesgen/internal/cache"
	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/deploy/hosted"
	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/incremental"
	"git.home.luguber.info/inful/seriesgen/internal/pagetree"
	"git.home.luguber.info/inful/seriesgen/internal/site"
)

// KeyHostedLastRun stores hostedState.
const KeyHostedLastRun = "hosted_lastrun"

// Deployer publishes a file list to a hash-diff host.
type Deployer interface {
	Deploy(ctx context.Context, files map[string]string, read hosted.Reader) (hosted.Result, error)
}

// hostedState is what a hosted deploy remembers. Every deploy must list the
// complete site, so the digests of files not regenerated this cycle are
// carried over from the last one.
type hostedState struct {
	Groups incremental.Fingerprints `json:"group_fingerprints"`
	Files  map[string]string        `json:"file_hashes"`
}

// Hosted materializes in memory and deploys through a hash-diff API.
type Hosted struct {
	client Deployer
	cache  cache.Cache
	mat    Materializer

	state   hostedState
	loaded  bool
	pending map[string]string
}

// NewHosted returns a hosted target.
func NewHosted(client Deployer, c cache.Cache, m Materializer) *Hosted {
	return &Hosted{client: client, cache: c, mat: m}
}

func (*Hosted) Name() string { return "hosted" }

func (t *Hosted) PresentGroups(ctx context.Context) (*incremental.Fingerprints, error) {
	t.state, t.loaded = hostedState{Files: map[string]string{}}, false
	if t.cache == nil {
		return nil, nil
	}
	raw, ok, err := t.cache.Get(ctx, KeyHostedLastRun)
	if err != nil || !ok || raw == "" {
		return nil, err
	}
	var st hostedState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, errors.WrapError(err, errors.CategoryCache, "decode hosted state").Build()
	}
	if st.Files == nil {
		st.Files = map[string]string{}
	}
	t.state, t.loaded = st, true
	if st.Groups == nil {
		return nil, nil
	}
	fp := st.Groups.Clone()
	return &fp, nil
}

func (t *Hosted) Generate(ctx context.Context, trees []*pagetree.Node, groups []content.Group) (site.Stats, error) {
	if t.state.Files == nil {
		t.state.Files = map[string]string{}
	}
	mem := afero.NewMemMapFs()
	stats, err := t.mat.write(ctx, mem, trees, groups, false)
	if err != nil {
		return stats, err
	}

	files := CarriedFiles(t.state.Files, t.mat.Options, trees, groups)
	generated, err := site.Files(mem, "/")
	if err != nil {
		return stats, err
	}
	for _, p := range generated {
		data, err := afero.ReadFile(mem, p)
		if err != nil {
			return stats, errors.WrapError(err, errors.CategoryFileSystem, "read generated file").
				WithContext("path", p).Build()
		}
		files[p] = hosted.Digest(data)
	}

	res, err := t.client.Deploy(ctx, files, func(p string) ([]byte, error) {
		return afero.ReadFile(mem, p)
	})
	t.mat.recorder().AddDeployUploads(t.Name(), res.Uploaded)
	if err != nil {
		return stats, err
	}
	t.pending = files
	return stats, nil
}

func (t *Hosted) Finalize(ctx context.Context, fp incremental.Fingerprints) error {
	st := hostedState{Groups: fp.Clone(), Files: t.pending}
	if st.Files == nil {
		st.Files = maps.Clone(t.state.Files)
	}
	t.state, t.pending = st, nil
	if t.cache == nil {
		return nil
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "encode hosted state").Build()
	}
	return t.cache.Set(ctx, KeyHostedLastRun, string(raw))
}

// CarriedFiles returns the previously deployed digests that stay valid when
// trees are regenerated. Files outside the output directory and files at its
// root are kept. Below it, only the static and image directories and
// directories of present groups that are not being rebuilt survive. Without
// group prefixes every tree is regenerated, so everything else is dropped.
func CarriedFiles(prev map[string]string, opts site.Options, trees []*pagetree.Node, groups []content.Group) map[string]string {
	base := path.Join("/", opts.Dir)
	rebuilt := map[string]bool{}
	for _, t := range trees {
		if t.Group != nil {
			rebuilt[t.Group.PathPart] = true
		}
	}
	present := map[string]bool{}
	for _, g := range groups {
		present[g.PathPart] = true
	}

	out := make(map[string]string, len(prev))
	for p, digest := range prev {
		rel, ok := relativeTo(base, p)
		if !ok {
			out[p] = digest
			continue
		}
		parts := strings.Split(rel, "/")
		switch {
		case len(parts) == 1:
			out[p] = digest
		case parts[0] == site.StaticDir, parts[0] == site.AssetsDir:
			out[p] = digest
		case opts.GroupPrefix && present[parts[0]] && !rebuilt[parts[0]]:
			out[p] = digest
		}
	}
	return out
}

func relativeTo(base, p string) (string, bool) {
	p = path.Join("/", p)
	if base == "/" {
		return strings.TrimPrefix(p, "/"), true
	}
	if !strings.HasPrefix(p, base+"/") {
		return "", false
	}
	return strings.TrimPrefix(p, base+"/"), true
}
