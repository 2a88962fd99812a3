package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazar-market/bazar-backend/pkg/logger"
)

type fakeSweeper struct {
	downgraded int
	err        error
	calls      int
}

func (f *fakeSweeper) DowngradeExpired(context.Context) (int, error) {
	f.calls++
	return f.downgraded, f.err
}

type countingRecorder struct {
	total int
}

func (c *countingRecorder) AddDowngrades(n int) {
	c.total += n
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestSubscriptionExpiryJobRecordsDowngrades(t *testing.T) {
	sweeper := &fakeSweeper{downgraded: 3}
	recorder := &countingRecorder{}
	job, err := NewSubscriptionExpiryJob(SubscriptionExpiryJobParams{Logger: testLogger(), Sweeper: sweeper, Recorder: recorder})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "subscription-expiry", job.Name())
	assert.Equal(t, 1, sweeper.calls)
	assert.Equal(t, 3, recorder.total)
}

func TestSubscriptionExpiryJobKeepsPartialProgressOnError(t *testing.T) {
	sweeper := &fakeSweeper{downgraded: 2, err: errors.New("row failed")}
	recorder := &countingRecorder{}
	job, err := NewSubscriptionExpiryJob(SubscriptionExpiryJobParams{Logger: testLogger(), Sweeper: sweeper, Recorder: recorder})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row failed")
	assert.Equal(t, 2, recorder.total)
}

func TestNewSubscriptionExpiryJobRequiresSweeper(t *testing.T) {
	_, err := NewSubscriptionExpiryJob(SubscriptionExpiryJobParams{Logger: testLogger()})
	require.Error(t, err)
}
