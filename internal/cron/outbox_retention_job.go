package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/bazar-market/bazar-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultPurgeBatch      = 1000
)

type publishedEventPurger interface {
	PurgePublished(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository publishedEventPurger
	Retention  time.Duration
	BatchSize  int
	Now        func() time.Time
}

// outboxRetentionJob drops published outbox rows older than the retention window.
// It deletes in batches so a large backlog never holds one long lock.
type outboxRetentionJob struct {
	logg      *logger.Logger
	repo      publishedEventPurger
	retention time.Duration
	batch     int
	now       func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	j := &outboxRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: params.Retention,
		batch:     params.BatchSize,
		now:       params.Now,
	}
	if j.retention <= 0 {
		j.retention = defaultOutboxRetention
	}
	if j.batch <= 0 {
		j.batch = defaultPurgeBatch
	}
	if j.now == nil {
		j.now = time.Now
	}
	return j, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := j.repo.PurgePublished(ctx, cutoff, j.batch)
		if err != nil {
			return fmt.Errorf("purge published outbox rows after %d deleted: %w", total, err)
		}
		total += n
		if n < int64(j.batch) {
			break
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": total,
	}), "outbox retention done")
	return nil
}
