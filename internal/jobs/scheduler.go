package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ArCaneSec/apidock/internal/logging"

	"github.com/go-co-op/gocron/v2"
)

type job struct {
	duration  time.Duration
	cronJob   gocron.Job
	task      Task
	active    bool
	cDuration time.Duration

	mu     sync.Mutex
	killer context.CancelFunc
}

func (j *job) runTask() {
	ctx, cancel := context.WithTimeout(context.Background(), j.cDuration)
	defer cancel()

	j.mu.Lock()
	j.killer = cancel
	j.mu.Unlock()

	j.task.Start(ctx)
}

func (j *job) kill() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.killer != nil {
		j.killer()
	}
}

type Scheduler struct {
	core gocron.Scheduler
	jobs []*job
	log  *slog.Logger
}

func (s *Scheduler) DeactiveJob(id int) error {
	if id < 0 || id >= len(s.jobs) {
		return fmt.Errorf("invalid id: %d", id)
	}

	job := s.jobs[id]
	if !job.active {
		return fmt.Errorf("job id %d is already inactive", id)
	}

	if err := s.core.RemoveJob(job.cronJob.ID()); err != nil {
		return fmt.Errorf("remove job %d: %w", id, err)
	}
	job.active = false
	job.kill()

	return nil
}

func (s *Scheduler) ActiveJob(id int) error {
	if id < 0 || id >= len(s.jobs) {
		return fmt.Errorf("invalid id: %d", id)
	}

	job := s.jobs[id]
	if job.active {
		return fmt.Errorf("job id %d is already active", id)
	}

	j, err := s.core.NewJob(
		gocron.DurationJob(job.duration),
		gocron.NewTask(job.runTask),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.task.Name(), err)
	}

	job.cronJob = j
	job.active = true

	return nil
}

// Shutdown deactivates every job, cancelling runs in flight, and stops the
// underlying scheduler.
func (s *Scheduler) Shutdown() error {
	for id, job := range s.jobs {
		if !job.active {
			continue
		}
		if err := s.DeactiveJob(id); err != nil {
			return fmt.Errorf("error while shutting scheduler down: %w", err)
		}
	}
	return s.core.Shutdown()
}

type Config struct {
	ExportRetention time.Duration
	PurgeInterval   time.Duration
}

// ScheduleJobs starts the background jobs. Runs never overlap.
func ScheduleJobs(cfg Config, exports Purger, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("component", "jobs")

	core, err := gocron.NewScheduler(gocron.WithLimitConcurrentJobs(1, gocron.LimitModeWait))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	jobs := []*job{
		purgeExportsJob(cfg, exports, log),
	}
	scheduler := &Scheduler{core: core, jobs: jobs, log: log}

	core.Start()
	for id := range scheduler.jobs {
		if err := scheduler.ActiveJob(id); err != nil {
			core.Shutdown()
			return nil, err
		}
	}

	return scheduler, nil
}

func purgeExportsJob(cfg Config, exports Purger, log *slog.Logger) *job {
	return &job{
		duration:  cfg.PurgeInterval,
		task:      &PurgeExports{exports: exports, retention: cfg.ExportRetention, log: log},
		cDuration: time.Minute,
	}
}
