package cron

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bazar-market/bazar-backend/pkg/logger"
)

type jobRecorder interface {
	ObserveDuration(job string, duration time.Duration)
	IncSuccess(job string)
	IncFailure(job string)
}

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  jobRecorder
	Interval time.Duration
}

// Service is the cron worker loop. Each cycle takes the cluster lock, runs every
// registered job in order, then releases it.
type Service struct {
	ServiceParams
}

func NewService(params ServiceParams) (*Service, error) {
	var missing []string
	if params.Logger == nil {
		missing = append(missing, "logger")
	}
	if params.Lock == nil {
		missing = append(missing, "lock")
	}
	if params.Registry == nil {
		missing = append(missing, "registry")
	}
	if len(missing) > 0 {
		return nil, errors.New("cron service missing " + strings.Join(missing, ", "))
	}
	if params.Interval <= 0 {
		return nil, errors.New("cron interval must be positive")
	}
	return &Service{ServiceParams: params}, nil
}

// Run sweeps once immediately, then once per interval, until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.Logger.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			s.Logger.Info(ctx, "cron worker stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce reports whether this instance held the lock. Job errors are logged and
// counted but never returned, so one failing job cannot starve the others.
func (s *Service) RunOnce(ctx context.Context) (bool, error) {
	won, err := s.Lock.Acquire(ctx)
	if err != nil || !won {
		if err == nil {
			s.Logger.Info(ctx, "cron lock held elsewhere; skipping cycle")
		}
		return false, err
	}
	defer func() {
		if err := s.Lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.Logger.Error(ctx, "release cron lock", err)
		}
	}()

	for _, job := range s.Registry.Jobs() {
		if ctx.Err() != nil {
			break
		}
		s.runJob(ctx, job)
	}
	return true, nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	name := job.Name()
	ctx = s.Logger.WithField(ctx, "job", name)

	started := time.Now()
	err := job.Run(ctx)
	took := time.Since(started)
	s.record(name, took, err)

	ctx = s.Logger.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.Logger.Error(ctx, "cron job failed", err)
		return
	}
	s.Logger.Info(ctx, "cron job done")
}

func (s *Service) record(job string, took time.Duration, err error) {
	if s.Metrics == nil {
		return
	}
	s.Metrics.ObserveDuration(job, took)
	if err != nil {
		s.Metrics.IncFailure(job)
	} else {
		s.Metrics.IncSuccess(job)
	}
}
