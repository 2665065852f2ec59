// Package scheduler periodically refreshes configured news categories.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/RobinCoderZhao/newsdesk/internal/newsbot/store"
)

// Job represents a scheduled task.
type Job struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Refresher is the part of the pipeline a polling job drives.
type Refresher interface {
	ForceRefresh(ctx context.Context, category string) ([]store.Article, error)
}

// RefreshJob returns a job that re-fetches one category.
func RefreshJob(r Refresher, category string) Job {
	return Job{
		Name: "refresh:" + category,
		Fn: func(ctx context.Context) error {
			articles, err := r.ForceRefresh(ctx, category)
			if err != nil {
				return fmt.Errorf("refresh %s: %w", category, err)
			}
			slog.Debug("category refreshed", "category", category, "articles", len(articles))
			return nil
		},
	}
}

// Scheduler runs jobs at a fixed interval.
type Scheduler struct {
	jobs     []Job
	logger   *slog.Logger
	done     chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a new scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
}

// Add registers a job with the scheduler.
func (s *Scheduler) Add(job Job) {
	s.jobs = append(s.jobs, job)
}

// RunOnce executes all registered jobs once. A failing job is logged and
// does not stop the remaining ones; the number of failures is returned.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	failed := 0
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return failed
		}
		start := time.Now()
		if err := job.Fn(ctx); err != nil {
			failed++
			s.logger.Error("job failed", "name", job.Name, "error", err, "duration", time.Since(start))
			continue
		}
		s.logger.Info("job completed", "name", job.Name, "duration", time.Since(start))
	}
	return failed
}

// Start runs every job immediately and then once per interval until ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	s.logger.Info("scheduler started", "interval", interval, "jobs", len(s.jobs))

	s.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-s.done:
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Stop stops the scheduler. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}
