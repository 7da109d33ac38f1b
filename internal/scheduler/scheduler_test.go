package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/evetabi/betleague/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeJob struct {
	calls atomic.Int32
	n     int
	err   error
	panic bool
}

func (f *fakeJob) CloseExpired(ctx context.Context) (int, error)    { return f.run(ctx) }
func (f *fakeJob) CompleteExpired(ctx context.Context) (int, error) { return f.run(ctx) }

func (f *fakeJob) run(ctx context.Context) (int, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("job context has no deadline")
	}
	if f.panic {
		panic("boom")
	}
	return f.n, f.err
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:            true,
		CloseTicketsSpec:   "@every 1m",
		CompleteLeagueSpec: "@every 5m",
	}
}

func TestRunNow_RunsEveryJob(t *testing.T) {
	tickets, leagues := &fakeJob{n: 3}, &fakeJob{}
	core, logs := observer.New(zap.InfoLevel)
	s := NewScheduler(tickets, leagues, testSchedulerConfig(), zap.New(core))

	s.RunNow(context.Background())

	assert.EqualValues(t, 1, tickets.calls.Load())
	assert.EqualValues(t, 1, leagues.calls.Load())
	// Only the job that touched rows logs at info.
	require.Equal(t, 1, logs.FilterMessage("scheduler job done").Len())
	assert.Equal(t, "close-tickets", logs.FilterMessage("scheduler job done").All()[0].ContextMap()["job"])
}

func TestRunNow_RecoversPanicAndContinues(t *testing.T) {
	tickets, leagues := &fakeJob{panic: true}, &fakeJob{}
	core, logs := observer.New(zap.ErrorLevel)
	s := NewScheduler(tickets, leagues, testSchedulerConfig(), zap.New(core))

	require.NotPanics(t, func() { s.RunNow(context.Background()) })

	assert.EqualValues(t, 1, leagues.calls.Load(), "second job still runs")
	assert.Equal(t, 1, logs.FilterMessage("PANIC recovered in scheduler job").Len())
}

func TestRunNow_LogsJobErrors(t *testing.T) {
	tickets, leagues := &fakeJob{err: errors.New("db down")}, &fakeJob{}
	core, logs := observer.New(zap.ErrorLevel)
	s := NewScheduler(tickets, leagues, testSchedulerConfig(), zap.New(core))

	s.RunNow(context.Background())

	assert.Equal(t, 1, logs.FilterMessage("scheduler job failed").Len())
}

func TestRunNow_SkipsWhenCancelled(t *testing.T) {
	tickets, leagues := &fakeJob{}, &fakeJob{}
	s := NewScheduler(tickets, leagues, testSchedulerConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.RunNow(ctx)

	assert.Zero(t, tickets.calls.Load())
	assert.Zero(t, leagues.calls.Load())
}

func TestStart_RejectsBadSpec(t *testing.T) {
	cfg := testSchedulerConfig()
	cfg.CloseTicketsSpec = "every now and then"
	s := NewScheduler(&fakeJob{}, &fakeJob{}, cfg, zap.NewNop())

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close-tickets")
}

func TestStart_StopsOnCancel(t *testing.T) {
	s := NewScheduler(&fakeJob{}, &fakeJob{}, testSchedulerConfig(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	assert.Len(t, s.cron.Entries(), 2)
	cancel()
}
