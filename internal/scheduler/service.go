package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Jobs is the work the scheduler triggers
type Jobs interface {
	Refresh(ctx context.Context) error
	RunDigest(ctx context.Context) error
}

// Options holds the cron expressions (standard five fields) and a bound for each run
type Options struct {
	RefreshSchedule string
	DigestSchedule  string
	JobTimeout      time.Duration
}

// Service handles scheduling of dashboard refreshes and digests
type Service struct {
	opts Options
	jobs Jobs
	cron *cron.Cron
}

// NewService creates a new scheduler service. Runs of the same job never overlap.
func NewService(opts Options, jobs Jobs) *Service {
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 5 * time.Minute
	}
	return &Service{
		opts: opts,
		jobs: jobs,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
	}
}

// Start registers the jobs and starts the cron loop. An empty schedule disables its job.
func (s *Service) Start() error {
	if s.opts.RefreshSchedule != "" {
		if _, err := s.cron.AddFunc(s.opts.RefreshSchedule, s.runRefresh); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", s.opts.RefreshSchedule, err)
		}
	}

	if s.opts.DigestSchedule != "" {
		if _, err := s.cron.AddFunc(s.opts.DigestSchedule, s.runDigest); err != nil {
			return fmt.Errorf("invalid digest schedule %q: %w", s.opts.DigestSchedule, err)
		}
	}

	s.cron.Start()
	logrus.Infof("Scheduler started (refresh: %q, digest: %q)", s.opts.RefreshSchedule, s.opts.DigestSchedule)
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}

// Entries reports how many jobs are registered
func (s *Service) Entries() int {
	return len(s.cron.Entries())
}

func (s *Service) runRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	defer cancel()

	logrus.Info("Starting scheduled dashboard refresh")
	if err := s.jobs.Refresh(ctx); err != nil {
		logrus.Errorf("Scheduled refresh failed: %v", err)
	}
}

func (s *Service) runDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	defer cancel()

	logrus.Info("Starting scheduled digest")
	if err := s.jobs.RunDigest(ctx); err != nil {
		logrus.Errorf("Scheduled digest failed: %v", err)
	}
}
