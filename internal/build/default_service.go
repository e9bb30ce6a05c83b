package build

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/seriesgen/internal/blog"
	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/deploy"
	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/incremental"
	"git.home.luguber.info/inful/seriesgen/internal/logfields"
	"git.home.luguber.info/inful/seriesgen/internal/metrics"
	"git.home.luguber.info/inful/seriesgen/internal/pagetree"
)

const (
	stagePlan     = "plan"
	stageFetch    = "fetch"
	stageTree     = "tree"
	stageGenerate = "generate"
	stageFinalize = "finalize"
)

// DefaultService is the standard Service implementation.
type DefaultService struct {
	store  content.Store
	target deploy.Target
	blog   *blog.Builder

	filter     content.Filter
	rebuildAll bool
	recorder   metrics.Recorder
	logger     *slog.Logger
	newID      func() string

	// cycles of one service never overlap
	mu sync.Mutex
}

var _ Service = (*DefaultService)(nil)

// NewService returns a service publishing the groups of store to target.
// A nil blog builder leaves blog records in the regular page tree.
func NewService(store content.Store, target deploy.Target, b *blog.Builder) *DefaultService {
	return &DefaultService{
		store:    store,
		target:   target,
		blog:     b,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		newID:    uuid.NewString,
	}
}

// WithFilter narrows the groups and records the cycle sees.
func (s *DefaultService) WithFilter(f content.Filter) *DefaultService {
	s.filter = f
	return s
}

// WithRebuildAll renders every group whenever any group changed. Targets that
// share one output directory between groups need it.
func (s *DefaultService) WithRebuildAll(all bool) *DefaultService {
	s.rebuildAll = all
	return s
}

// WithRecorder sets the metrics recorder.
func (s *DefaultService) WithRecorder(r metrics.Recorder) *DefaultService {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	s.recorder = r
	return s
}

// WithLogger sets the base logger; every cycle adds its build id.
func (s *DefaultService) WithLogger(l *slog.Logger) *DefaultService {
	if l != nil {
		s.logger = l
	}
	return s
}

// WithIDGenerator overrides the build id source.
func (s *DefaultService) WithIDGenerator(fn func() string) *DefaultService {
	if fn != nil {
		s.newID = fn
	}
	return s
}

// Run executes one cycle. Fingerprints are only finalized after the target
// published successfully, so a failed cycle is retried in full next time.
func (s *DefaultService) Run(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &Result{ID: s.newID(), StartTime: time.Now()}
	log := s.logger.With(logfields.BuildID(res.ID), logfields.Target(s.target.Name()))

	err := s.run(ctx, log, res)
	switch {
	case err == nil:
	case ctx.Err() != nil && stderrors.Is(err, ctx.Err()):
		res.finish(StatusCanceled)
		log.WarnContext(ctx, "Build canceled", logfields.Error(err))
	default:
		res.finish(StatusFailed)
		log.ErrorContext(ctx, "Build failed", logfields.Error(err))
	}

	s.recorder.ObserveBuildDuration(res.Duration)
	s.recorder.IncBuildOutcome(outcome(res.Status))
	return res, err
}

func (s *DefaultService) run(ctx context.Context, log *slog.Logger, res *Result) error {
	log.InfoContext(ctx, "Starting build")

	// Stage 1: plan
	done := metrics.Timer(s.recorder, stagePlan)
	groups, plan, err := s.plan(ctx)
	done(err)
	if err != nil {
		return err
	}
	res.Groups = len(groups)

	if plan.Unchanged() {
		s.recorder.SetGroupsPlanned(0, len(groups))
		log.InfoContext(ctx, "Nothing changed since the last deploy", logfields.Count(len(groups)))
		res.finish(StatusUnchanged)
		return nil
	}

	needed := s.neededGroups(groups, plan)
	s.recorder.SetGroupsPlanned(len(needed), len(groups)-len(needed))
	for _, g := range needed {
		res.Rebuilt = append(res.Rebuilt, g.ID)
	}
	log.InfoContext(ctx, "Planned build",
		slog.Int("needed", len(needed)),
		slog.Int("skipped", len(groups)-len(needed)))

	// Stage 2: fetch records of the needed groups
	done = metrics.Timer(s.recorder, stageFetch)
	records, err := s.fetch(ctx, needed)
	done(err)
	if err != nil {
		return err
	}

	// Stage 3: page trees
	done = metrics.Timer(s.recorder, stageTree)
	trees, err := s.trees(ctx, log, needed, records)
	done(err)
	if err != nil {
		return err
	}

	// Stage 4: render and publish
	done = metrics.Timer(s.recorder, stageGenerate)
	stats, err := s.target.Generate(ctx, trees, groups)
	done(err)
	if err != nil {
		return err
	}
	res.Pages = stats.Pages

	// Stage 5: remember what was published
	done = metrics.Timer(s.recorder, stageFinalize)
	err = s.target.Finalize(ctx, plan.Fingerprints)
	done(err)
	if err != nil {
		return err
	}

	res.finish(StatusSuccess)
	log.InfoContext(ctx, "Build complete",
		slog.Int("pages", stats.Pages),
		slog.Int("groups", stats.Groups),
		slog.Int("assets", stats.Assets),
		logfields.DurationMS(float64(res.Duration.Microseconds())/1000))
	return nil
}

func (s *DefaultService) plan(ctx context.Context) ([]content.Group, incremental.Result, error) {
	groups, err := s.store.Groups(ctx, s.filter)
	if err != nil {
		return nil, incremental.Result{}, errors.WrapError(err, errors.CategoryContent, "load groups").Build()
	}
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	identities, err := s.store.Identities(ctx, ids, s.filter)
	if err != nil {
		return nil, incremental.Result{}, errors.WrapError(err, errors.CategoryContent, "load record identities").Build()
	}
	persisted, err := s.target.PresentGroups(ctx)
	if err != nil {
		return nil, incremental.Result{}, errors.WrapError(err, errors.CategoryDeploy, "read published state").Build()
	}
	return groups, incremental.Plan(groups, identities, persisted), nil
}

func (s *DefaultService) neededGroups(groups []content.Group, plan incremental.Result) []content.Group {
	if s.rebuildAll {
		return groups
	}
	var out []content.Group
	for _, g := range groups {
		if plan.IsNeeded(g.ID) {
			out = append(out, g)
		}
	}
	return out
}

func (s *DefaultService) fetch(ctx context.Context, groups []content.Group) (map[string][]content.Record, error) {
	if len(groups) == 0 {
		return map[string][]content.Record{}, nil
	}
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	records, err := s.store.Records(ctx, ids, s.filter)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryContent, "load records").Build()
	}
	return content.ByGroup(records), nil
}

func (s *DefaultService) trees(ctx context.Context, log *slog.Logger, groups []content.Group, records map[string][]content.Record) ([]*pagetree.Node, error) {
	trees := make([]*pagetree.Node, 0, len(groups))
	for i := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g := &groups[i]
		pages, posts := records[g.ID], []content.Record(nil)
		if s.blog != nil {
			pages, posts = content.SplitBlog(pages)
		}
		root, err := pagetree.Build(g, pages)
		if err != nil {
			return nil, err
		}
		if s.blog != nil {
			if root, err = s.blog.Attach(root, posts); err != nil {
				return nil, errors.WrapError(err, errors.CategoryContent, "attach blog").
					WithContext("group", g.ID).Build()
			}
		}
		log.DebugContext(ctx, "Built page tree",
			logfields.Group(g.ID),
			logfields.Count(root.Len()),
			slog.Int("posts", len(posts)))
		trees = append(trees, root)
	}
	return trees, nil
}

func outcome(s Status) metrics.BuildOutcomeLabel {
	switch s {
	case StatusSuccess:
		return metrics.OutcomeSuccess
	case StatusUnchanged:
		return metrics.OutcomeUnchanged
	case StatusCanceled:
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeFailed
	}
}
