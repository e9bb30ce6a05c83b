// Package build runs one build cycle: plan against the target's published
// state, render the groups that changed and publish them.
//
// All execution paths (CLI build, daemon ticks, the debug server's rebuild
// endpoint) route through Service.
package build

import (
	"context"
	"time"
)

// Service executes build cycles.
type Service interface {
	Run(ctx context.Context) (*Result, error)
}

// Status is the outcome of a cycle.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusUnchanged Status = "unchanged"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// IsTerminal reports whether s is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusUnchanged || s == StatusFailed || s == StatusCanceled
}

// IsSuccess reports whether the cycle left the target consistent with the
// content.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusUnchanged
}

// Result describes a finished cycle.
type Result struct {
	ID     string
	Status Status

	// Groups is the number of groups present in the store.
	Groups int
	// Rebuilt lists the ids of the groups that were rendered.
	Rebuilt []string
	// Pages is the number of pages written.
	Pages int

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

func (r *Result) finish(status Status) *Result {
	r.Status = status
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	return r
}
