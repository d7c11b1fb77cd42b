package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/modules/approvals"
)

// ExpirySweepJob sweeps overdue pending decisions to expired so the queue
// never accumulates stale approvals between operator visits
type ExpirySweepJob struct {
	queue *approvals.Queue
	log   zerolog.Logger
}

// NewExpirySweepJob creates a new expiry sweep job
func NewExpirySweepJob(queue *approvals.Queue, log zerolog.Logger) *ExpirySweepJob {
	return &ExpirySweepJob{
		queue: queue,
		log:   log.With().Str("job", "expiry_sweep").Logger(),
	}
}

// Name returns the job name
func (j *ExpirySweepJob) Name() string {
	return "expiry_sweep"
}

// Run expires every overdue pending decision
func (j *ExpirySweepJob) Run() error {
	_, err := j.queue.ExpireStale()
	return err
}
