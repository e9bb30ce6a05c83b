// Package daemon runs build cycles on a fixed interval until stopped.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/seriesgen/internal/build"
	"git.home.luguber.info/inful/seriesgen/internal/logfields"
)

const jobName = "build-cycle"

// Status is a snapshot of the daemon's progress.
type Status struct {
	Cycles     int
	Failures   int
	LastResult *build.Result
	LastError  error
}

// Daemon triggers a build.Service periodically.
type Daemon struct {
	service  build.Service
	interval time.Duration

	// AfterCycle, when set, is called after every cycle.
	AfterCycle func(res *build.Result, err error)

	mu     sync.Mutex
	status Status
}

// New returns a daemon running service every interval.
func New(service build.Service, interval time.Duration) *Daemon {
	return &Daemon{service: service, interval: interval}
}

// Run starts the first cycle immediately and keeps cycling until ctx is
// canceled. Cycle failures are logged and retried on the next tick.
func (d *Daemon) Run(ctx context.Context) error {
	s, err := NewScheduler()
	if err != nil {
		return err
	}
	if _, err := s.ScheduleEvery(ctx, jobName, d.interval, d.cycle); err != nil {
		_ = s.Stop()
		return err
	}
	slog.Info("Daemon started", slog.Duration("interval", d.interval))
	s.Start()

	<-ctx.Done()
	if err := s.Stop(); err != nil {
		slog.Warn("Scheduler shutdown failed", logfields.Error(err))
	}
	slog.Info("Daemon stopped")
	return nil
}

func (d *Daemon) cycle(ctx context.Context) {
	res, err := d.service.Run(ctx)

	d.mu.Lock()
	d.status.Cycles++
	d.status.LastResult = res
	d.status.LastError = err
	if err != nil {
		d.status.Failures++
	}
	d.mu.Unlock()

	if err != nil {
		slog.Error("Build cycle failed; retrying on next tick", logfields.Error(err))
	}
	if d.AfterCycle != nil {
		d.AfterCycle(res, err)
	}
}

// Status returns a copy of the current status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}
