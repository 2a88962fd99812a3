package cron

import (
	"context"
	"fmt"

	"github.com/bazar-market/bazar-backend/pkg/logger"
)

type subscriptionSweeper interface {
	DowngradeExpired(ctx context.Context) (int, error)
}

type downgradeRecorder interface {
	AddDowngrades(n int)
}

// SubscriptionExpiryJobParams configures the subscription sweeper.
type SubscriptionExpiryJobParams struct {
	Logger   *logger.Logger
	Sweeper  subscriptionSweeper
	Recorder downgradeRecorder
}

// NewSubscriptionExpiryJob returns the job that moves lapsed paid plans back to FREE.
func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("subscription sweeper required")
	}
	return &subscriptionExpiryJob{
		logg:     params.Logger,
		sweeper:  params.Sweeper,
		recorder: params.Recorder,
	}, nil
}

type subscriptionExpiryJob struct {
	logg     *logger.Logger
	sweeper  subscriptionSweeper
	recorder downgradeRecorder
}

func (j *subscriptionExpiryJob) Name() string { return "subscription-expiry" }

// Run records partial progress even when some rows failed.
func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	downgraded, err := j.sweeper.DowngradeExpired(ctx)
	if j.recorder != nil {
		j.recorder.AddDowngrades(downgraded)
	}
	logCtx := j.logg.WithField(ctx, "downgraded", downgraded)
	if err != nil {
		return fmt.Errorf("subscription expiry: %w", err)
	}
	j.logg.Info(logCtx, "subscription expiry sweep complete")
	return nil
}
