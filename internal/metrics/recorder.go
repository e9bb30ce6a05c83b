package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultSkipped  ResultLabel = "skipped"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// BuildOutcomeLabel is the final status of a build cycle.
type BuildOutcomeLabel string

const (
	OutcomeSuccess   BuildOutcomeLabel = "success"
	OutcomeUnchanged BuildOutcomeLabel = "unchanged"
	OutcomeFailed    BuildOutcomeLabel = "failed"
	OutcomeCanceled  BuildOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for build cycles.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	SetGroupsPlanned(needed, skipped int)
	AddPagesRendered(n int)
	AddDeployUploads(target string, n int)
	IncRetry(operation string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) SetGroupsPlanned(int, int)                  {}
func (NoopRecorder) AddPagesRendered(int)                       {}
func (NoopRecorder) AddDeployUploads(string, int)               {}
func (NoopRecorder) IncRetry(string)                            {}

// Timer measures a stage and reports its duration and result.
func Timer(r Recorder, stage string) func(err error) {
	start := time.Now()
	return func(err error) {
		r.ObserveStageDuration(stage, time.Since(start))
		if err != nil {
			r.IncStageResult(stage, ResultFatal)
			return
		}
		r.IncStageResult(stage, ResultSuccess)
	}
}
