package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ordercore-backend/pkg/logger"
)

type fakeLock struct {
	held       bool
	acquireErr error
	releases   int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (j *testJob) Name() string { return j.name }

func (j *testJob) Run(context.Context) error {
	j.runs++
	return j.err
}

type runRecord struct {
	job string
	err error
}

type recordingMetrics struct {
	runs []runRecord
}

func (r *recordingMetrics) ObserveRun(job string, _ time.Duration, err error) {
	r.runs = append(r.runs, runRecord{job: job, err: err})
}

func TestRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	boom := errors.New("boom")
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "failing", err: boom}
	after := &testJob{name: "after"}
	lock := &fakeLock{}
	m := &recordingMetrics{}

	s, err := NewScheduler(SchedulerParams{
		Logger:  logger.Nop(),
		Lock:    lock,
		Metrics: m,
		Jobs:    []Job{ok, nil, failing, after},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok", "failing", "after"}, s.Jobs())

	require.NoError(t, s.runCycle(context.Background()))

	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, after.runs)
	assert.Equal(t, 1, lock.releases)
	require.Len(t, m.runs, 3)
	assert.ErrorIs(t, m.runs[1].err, boom)
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "ok"}
	s, err := NewScheduler(SchedulerParams{Logger: logger.Nop(), Lock: &fakeLock{held: true}, Jobs: []Job{job}})
	require.NoError(t, err)

	require.NoError(t, s.runCycle(context.Background()))
	assert.Zero(t, job.runs)
}

func TestRunCycleReportsLockErrors(t *testing.T) {
	s, err := NewScheduler(SchedulerParams{Logger: logger.Nop(), Lock: &fakeLock{acquireErr: errors.New("redis down")}})
	require.NoError(t, err)

	assert.ErrorContains(t, s.runCycle(context.Background()), "redis down")
}

func TestRunStopsWithContext(t *testing.T) {
	job := &testJob{name: "ok"}
	s, err := NewScheduler(SchedulerParams{Logger: logger.Nop(), Lock: &LocalLock{}, Interval: time.Hour, Jobs: []Job{job}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.Equal(t, 1, job.runs)
}

func TestNewSchedulerValidates(t *testing.T) {
	_, err := NewScheduler(SchedulerParams{Lock: &LocalLock{}})
	assert.Error(t, err)
	_, err = NewScheduler(SchedulerParams{Logger: logger.Nop()})
	assert.Error(t, err)
}
