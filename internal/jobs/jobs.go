// Package jobs runs periodic housekeeping on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Purger deletes rows that expired before now.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Job is one scheduled unit of work.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// PurgeJob wraps a Purger, logging how many rows it removed.
func PurgeJob(name, schedule string, p Purger, log *zap.Logger, now func() time.Time) Job {
	if now == nil {
		now = time.Now
	}
	return Job{
		Name:     name,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			n, err := p.PurgeExpired(ctx, now().UTC())
			if err != nil {
				return err
			}
			if n > 0 {
				log.Info("purged expired rows", zap.String("job", name), zap.Int64("rows", n))
			}
			return nil
		},
	}
}

type Scheduler struct {
	jobs []Job
	log  *zap.Logger
}

// NewScheduler returns a Scheduler for jobs. A nil log discards output.
func NewScheduler(log *zap.Logger, jobs ...Job) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{jobs: jobs, log: log}
}

// Run schedules every job and blocks until ctx is cancelled. A job still running when its
// next tick arrives is skipped for that tick.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	for _, j := range s.jobs {
		if _, err := c.AddFunc(j.Schedule, func() { s.execute(ctx, j) }); err != nil {
			return err
		}
	}
	c.Start()
	s.log.Info("job scheduler started", zap.Int("jobs", len(s.jobs)))

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("job scheduler stopped")
	return nil
}

func (s *Scheduler) execute(ctx context.Context, j Job) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := j.Run(ctx); err != nil {
		s.log.Warn("job failed", zap.String("job", j.Name), zap.Error(err))
	}
}
