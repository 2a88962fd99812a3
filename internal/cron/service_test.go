package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLock struct {
	held     bool
	err      error
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
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

type countingJob struct {
	name string
	err  error
	runs int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) error {
	c.runs++
	return c.err
}

type recordedJobs struct {
	success map[string]int
	failure map[string]int
}

func newRecordedJobs() *recordedJobs {
	return &recordedJobs{success: map[string]int{}, failure: map[string]int{}}
}

func (r *recordedJobs) ObserveDuration(string, time.Duration) {}
func (r *recordedJobs) IncSuccess(job string)                 { r.success[job]++ }
func (r *recordedJobs) IncFailure(job string)                 { r.failure[job]++ }

func newTestService(t *testing.T, lock Lock, rec jobRecorder, jobs ...Job) *Service {
	t.Helper()
	registry := NewRegistry()
	for _, job := range jobs {
		require.NoError(t, registry.Register(job))
	}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: registry,
		Lock:     lock,
		Metrics:  rec,
		Interval: time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestRunOnceRunsEveryJobEvenAfterFailure(t *testing.T) {
	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("boom")}
	lock := &fakeLock{}
	rec := newRecordedJobs()
	svc := newTestService(t, lock, rec, bad, ok)

	won, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, won)
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, bad.runs)
	assert.Equal(t, 1, rec.success["ok"])
	assert.Equal(t, 1, rec.failure["bad"])
	assert.Equal(t, 1, lock.releases)
	assert.False(t, lock.held)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "ok"}
	lock := &fakeLock{held: true}
	svc := newTestService(t, lock, nil, job)

	won, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, won)
	assert.Zero(t, job.runs)
	assert.Zero(t, lock.releases)
}

func TestRunOnceSurfacesLockErrors(t *testing.T) {
	svc := newTestService(t, &fakeLock{err: errors.New("redis down")}, nil, &countingJob{name: "ok"})

	_, err := svc.RunOnce(context.Background())
	assert.Error(t, err)
}

type signalJob struct{ ran chan struct{} }

func (s *signalJob) Name() string { return "signal" }
func (s *signalJob) Run(context.Context) error {
	select {
	case s.ran <- struct{}{}:
	default:
	}
	return nil
}

func TestRunSweepsImmediatelyAndStopsOnCancel(t *testing.T) {
	job := &signalJob{ran: make(chan struct{}, 1)}
	svc := newTestService(t, &fakeLock{}, nil, job)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	select {
	case <-job.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not run before the ticker")
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewServiceNamesMissingDeps(t *testing.T) {
	_, err := NewService(ServiceParams{Interval: time.Minute})
	assert.EqualError(t, err, "cron service missing logger, lock, registry")

	_, err = NewService(ServiceParams{Logger: testLogger(), Lock: &fakeLock{}, Registry: NewRegistry()})
	assert.Error(t, err)
}
