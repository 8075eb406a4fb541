package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lecture-script-service/internal/domain"
	"lecture-script-service/internal/domain/model"
	"lecture-script-service/internal/domain/ports/notify"
	"lecture-script-service/internal/domain/ports/repository"
	"lecture-script-service/internal/infra/metrics"
)

// FailureFunnel is the single exit path for every pipeline failure: it
// persists the failed state, pushes an error event to subscribers, and
// logs with the classified error code. Handle never returns an error;
// whatever goes wrong inside it is logged and swallowed, because the
// pipeline calling it has already failed.
type FailureFunnel struct {
	jobs repository.JobRepository
	pub  notify.Publisher
	log  zerolog.Logger
}

func NewFailureFunnel(jobs repository.JobRepository, pub notify.Publisher, log zerolog.Logger) *FailureFunnel {
	return &FailureFunnel{
		jobs: jobs,
		pub:  pub,
		log:  log.With().Str("component", "failure-funnel").Logger(),
	}
}

// Handle records a stage failure against the job. If the job has already
// reached a terminal state (a cancel won the race) nothing is published.
func (f *FailureFunnel) Handle(ctx context.Context, job *model.Job, stage string, err error) {
	reason := fmt.Sprintf("%s: %v", stage, err)
	code := domain.Classify(err)

	// The pipeline's context may already be dead (timeout, cancel race);
	// the terminal write still has to land.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	now := time.Now()
	changed, markErr := f.jobs.MarkFailed(ctx, job.ID, reason, now)
	if markErr != nil {
		f.log.Error().Err(markErr).
			Str("job_id", job.ID).
			Str("stage", stage).
			Msg("could not persist failed state")
		return
	}
	if !changed {
		f.log.Debug().
			Str("job_id", job.ID).
			Str("stage", stage).
			Msg("job already terminal, failure dropped")
		return
	}

	job.Fail(reason)
	f.pub.Publish(model.NewErrorEvent(job, reason))
	metrics.JobFinished(string(job.Kind), string(model.JobStatusFailed), job.Duration().Seconds())

	f.log.Error().Err(err).
		Str("job_id", job.ID).
		Str("kind", string(job.Kind)).
		Str("stage", stage).
		Str("code", string(code)).
		Msg("job failed")
}
