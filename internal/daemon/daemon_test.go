package daemon

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/seriesgen/internal/build"
	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
)

type countingService struct {
	runs    atomic.Int32
	failOn  int32
	running atomic.Int32
	overlap atomic.Bool
	delay   time.Duration
}

func (c *countingService) Run(ctx context.Context) (*build.Result, error) {
	if c.running.Add(1) > 1 {
		c.overlap.Store(true)
	}
	defer c.running.Add(-1)
	n := c.runs.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
		}
	}
	if n == c.failOn {
		return &build.Result{Status: build.StatusFailed}, stderrors.New("store unavailable")
	}
	return &build.Result{Status: build.StatusSuccess}, nil
}

func TestScheduleEveryRejectsNonPositiveInterval(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	_, err = s.ScheduleEvery(context.Background(), "test", 0, func(context.Context) {})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestScheduleEveryReturnsID(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	id, err := s.ScheduleEvery(context.Background(), "test", time.Hour, func(context.Context) {})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestDaemonRunsImmediatelyAndRepeats(t *testing.T) {
	svc := &countingService{failOn: 1}
	d := New(svc, 50*time.Millisecond)
	cycles := make(chan error, 16)
	d.AfterCycle = func(_ *build.Result, err error) { cycles <- err }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case err := <-cycles:
		require.Error(t, err, "first cycle fails")
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle did not run")
	}
	select {
	case err := <-cycles:
		require.NoError(t, err, "failure is retried on the next tick")
	case <-time.After(5 * time.Second):
		t.Fatal("second cycle did not run")
	}

	cancel()
	require.NoError(t, <-done)

	st := d.Status()
	assert.GreaterOrEqual(t, st.Cycles, 2)
	assert.Equal(t, 1, st.Failures)
}

func TestDaemonCyclesDoNotOverlap(t *testing.T) {
	svc := &countingService{delay: 80 * time.Millisecond}
	d := New(svc, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return svc.runs.Load() >= 3 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.False(t, svc.overlap.Load())
}
