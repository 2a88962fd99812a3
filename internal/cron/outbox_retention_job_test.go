package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePurger pops one batch result per call.
type fakePurger struct {
	batches []int64
	cutoffs []time.Time
	limits  []int
	err     error
}

func (f *fakePurger) PurgePublished(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return 0, f.err
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	return n, nil
}

func TestOutboxRetentionJobUsesRetentionWindow(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	purger := &fakePurger{batches: []int64{4}}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		Repository: purger,
		Retention:  7 * 24 * time.Hour,
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, purger.cutoffs, 1)
	assert.Equal(t, time.Date(2026, 3, 24, 12, 0, 0, 0, time.UTC), purger.cutoffs[0])
	assert.Equal(t, defaultPurgeBatch, purger.limits[0])
}

func TestOutboxRetentionJobLoopsUntilShortBatch(t *testing.T) {
	purger := &fakePurger{batches: []int64{10, 10, 3}}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		Repository: purger,
		BatchSize:  10,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, purger.limits, 3)
}

func TestOutboxRetentionJobStopsOnCancel(t *testing.T) {
	purger := &fakePurger{batches: []int64{10, 10, 10}}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger(), Repository: purger, BatchSize: 10})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
	assert.Empty(t, purger.limits)
}

func TestOutboxRetentionJobWrapsErrors(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		Repository: &fakePurger{err: errors.New("db gone")},
	})
	require.NoError(t, err)

	assert.ErrorContains(t, job.Run(context.Background()), "db gone")
}
