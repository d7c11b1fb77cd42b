package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a unit of recurring background work. The server runs two: the
// trading loop and the pending-decision expiry sweep.
type Job interface {
	Run() error
	Name() string
}

// Scheduler drives the background jobs on cron schedules
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
	jobs []string
}

// New creates an empty scheduler; register jobs before calling Start
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// AddJob registers a job under a cron schedule, "@every 180s" style
// descriptors included. A failing run is logged and the schedule keeps
// going; one bad cycle must not stop the loop.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	if _, err := s.cron.AddJob(schedule, &timedJob{job: job, log: s.log}); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", job.Name(), err)
	}

	s.jobs = append(s.jobs, job.Name())
	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// Start begins running the registered jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Strs("jobs", s.jobs).Msg("Scheduler started")
}

// Stop halts scheduling and waits for in-flight jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped")
}

// timedJob adapts a Job to cron.Job and times each run
type timedJob struct {
	job Job
	log zerolog.Logger
}

func (t *timedJob) Run() {
	start := time.Now()
	err := t.job.Run()

	event := t.log.Debug()
	if err != nil {
		event = t.log.Error().Err(err)
	}
	event.Str("job", t.job.Name()).Dur("took", time.Since(start)).Msg("Job finished")
}
