package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/crawl"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/logger"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/scheduler"
)

type countingRunner struct {
	calls atomic.Int32
	opts  atomic.Value
	ran   chan struct{}
}

func newCountingRunner() *countingRunner {
	return &countingRunner{ran: make(chan struct{}, 16)}
}

func (r *countingRunner) Run(_ context.Context, opts crawl.RunOptions) domain.CrawlStats {
	r.calls.Add(1)
	r.opts.Store(opts)
	r.ran <- struct{}{}
	return domain.CrawlStats{RunID: "run"}
}

func waitForRun(t *testing.T, r *countingRunner, timeout time.Duration) {
	t.Helper()
	select {
	case <-r.ran:
	case <-time.After(timeout):
		t.Fatal("runner was not called")
	}
}

func TestNew_InvalidSchedule(t *testing.T) {
	t.Parallel()

	_, err := scheduler.New(scheduler.Config{Enabled: true, Cron: "every tuesday"}, newCountingRunner(), logger.NewNoOp())
	require.ErrorIs(t, err, scheduler.ErrInvalidSchedule)
}

func TestNew_AcceptsDescriptors(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"0 */6 * * *", "@hourly", "@every 30m"} {
		_, err := scheduler.New(scheduler.Config{Cron: expr}, newCountingRunner(), logger.NewNoOp())
		require.NoError(t, err, expr)
	}
}

func TestStart_RunOnStart(t *testing.T) {
	t.Parallel()

	runner := newCountingRunner()
	s, err := scheduler.New(
		scheduler.Config{Enabled: true, Cron: "0 0 1 1 *", RunOnStart: true},
		runner,
		logger.NewNoOp(),
	)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	waitForRun(t, runner, 5*time.Second)
	s.Stop()

	assert.Equal(t, int32(1), runner.calls.Load())
	assert.Equal(t, crawl.DefaultRunOptions(), runner.opts.Load())
}

func TestStart_CronFires(t *testing.T) {
	t.Parallel()

	runner := newCountingRunner()
	s, err := scheduler.New(scheduler.Config{Enabled: true, Cron: "@every 1s"}, runner, logger.NewNoOp())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	waitForRun(t, runner, 5*time.Second)
}

func TestStart_Disabled(t *testing.T) {
	t.Parallel()

	runner := newCountingRunner()
	s, err := scheduler.New(
		scheduler.Config{Enabled: false, Cron: "@every 1s", RunOnStart: true},
		runner,
		logger.NewNoOp(),
	)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	assert.Zero(t, runner.calls.Load())
}

func TestStart_Twice(t *testing.T) {
	t.Parallel()

	s, err := scheduler.New(scheduler.Config{Enabled: true, Cron: "@daily"}, newCountingRunner(), logger.NewNoOp())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Error(t, s.Start(context.Background()))
}

func TestNext(t *testing.T) {
	t.Parallel()

	s, err := scheduler.New(scheduler.Config{Cron: "@hourly"}, newCountingRunner(), logger.NewNoOp())
	require.NoError(t, err)

	next := s.Next()
	assert.True(t, next.After(time.Now()))
	assert.Zero(t, next.Minute())
}
