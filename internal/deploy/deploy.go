// Package deploy publishes materialized sites and remembers which group
// fingerprints the last successful publish carried.
package deploy

import (
	"context"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/seriesgen/internal/cache"
	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/incremental"
	"git.home.luguber.info/inful/seriesgen/internal/metrics"
	"git.home.luguber.info/inful/seriesgen/internal/pagetree"
	"git.home.luguber.info/inful/seriesgen/internal/site"
)

// Target is where a build cycle publishes to.
type Target interface {
	// Name labels the target in logs and metrics.
	Name() string
	// PresentGroups returns the fingerprints of the last successful publish,
	// or nil when everything must be built.
	PresentGroups(ctx context.Context) (*incremental.Fingerprints, error)
	// Generate materializes and publishes trees. groups lists every group
	// currently present, including those not rebuilt.
	Generate(ctx context.Context, trees []*pagetree.Node, groups []content.Group) (site.Stats, error)
	// Finalize records fp as published. It is only called after Generate
	// succeeded.
	Finalize(ctx context.Context, fp incremental.Fingerprints) error
}

// Materializer renders trees onto a filesystem.
type Materializer struct {
	Renderer site.Renderer
	Options  site.Options
	Recorder metrics.Recorder
}

func (m Materializer) write(ctx context.Context, fsys afero.Fs, trees []*pagetree.Node, groups []content.Group, keepStatic bool) (site.Stats, error) {
	opts := m.Options
	opts.KeepStatic = keepStatic
	stats, err := site.Generate(ctx, fsys, trees, groups, m.Renderer, opts)
	if err == nil {
		m.recorder().AddPagesRendered(stats.Pages)
	}
	return stats, err
}

func (m Materializer) recorder() metrics.Recorder {
	if m.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return m.Recorder
}

// loadFingerprints reads the group map stored under key. A nil cache or a
// missing key yields nil.
func loadFingerprints(ctx context.Context, c cache.Cache, key string) (*incremental.Fingerprints, error) {
	if c == nil {
		return nil, nil
	}
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	fp, err := incremental.DecodeFingerprints(raw)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryCache, "decode stored fingerprints").
			WithContext("key", key).Build()
	}
	return fp, nil
}

func storeFingerprints(ctx context.Context, c cache.Cache, key string, fp incremental.Fingerprints) error {
	if c == nil {
		return nil
	}
	raw, err := fp.Encode()
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "encode fingerprints").Build()
	}
	return c.Set(ctx, key, raw)
}
