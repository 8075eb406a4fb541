package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lecture-script-service/internal/domain"
	"lecture-script-service/internal/domain/model"
	"lecture-script-service/internal/infra/logging"
)

// Dispatcher routes started jobs onto their execution path: transcription
// jobs go through the bounded worker pool, slide jobs run on their own
// goroutine since they spend their time waiting on the AI provider, not
// on local compute.
type Dispatcher struct {
	pool       *Pool
	transcribe *TranscribePipeline
	slides     *SlidesPipeline
	funnel     *FailureFunnel
	jobTimeout time.Duration
	log        zerolog.Logger

	mu      sync.Mutex
	baseCtx context.Context
	wg      sync.WaitGroup
}

func NewDispatcher(pool *Pool, transcribe *TranscribePipeline, slides *SlidesPipeline, funnel *FailureFunnel, jobTimeout time.Duration, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		pool:       pool,
		transcribe: transcribe,
		slides:     slides,
		funnel:     funnel,
		jobTimeout: jobTimeout,
		log:        log.With().Str("component", "dispatcher").Logger(),
	}
}

// Start binds the dispatcher to the process lifetime context and spins up
// the pool. Jobs outlive the HTTP request that started them; tying their
// context to the request would cancel them the moment the response is
// written.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	d.baseCtx = ctx
	d.mu.Unlock()
	d.pool.Start(ctx)
}

// Stop drains in-flight slide jobs and stops the pool workers.
func (d *Dispatcher) Stop() {
	d.wg.Wait()
	d.pool.Stop()
}

// Dispatch hands a started job to its pipeline. A saturated queue fails
// the job through the funnel; the returned error reports why dispatch was
// rejected, but the job's terminal state is already recorded.
func (d *Dispatcher) Dispatch(job *model.Job) error {
	d.mu.Lock()
	base := d.baseCtx
	d.mu.Unlock()
	if base == nil {
		return fmt.Errorf("dispatcher not started: %w", domain.ErrInvalidState)
	}

	switch job.Kind {
	case model.JobKindMediaToScript:
		if err := d.pool.Submit(func(ctx context.Context) error {
			return d.run(ctx, job, d.transcribe.Run)
		}); err != nil {
			d.funnel.Handle(base, job, "dispatch", err)
			return err
		}
	case model.JobKindSlidesToScript:
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.run(base, job, d.slides.Run); err != nil {
				d.log.Error().Err(err).Str("job_id", job.ID).Msg("slide job failed")
			}
		}()
	default:
		err := fmt.Errorf("job kind %q: %w", job.Kind, domain.ErrInvalidArgument)
		d.funnel.Handle(base, job, "dispatch", err)
		return err
	}
	return nil
}

func (d *Dispatcher) run(ctx context.Context, job *model.Job, pipeline func(context.Context, *model.Job) error) error {
	ctx = logging.WithJobID(ctx, job.ID)
	if job.ProjectID != "" {
		ctx = logging.WithProjectID(ctx, job.ProjectID)
	}
	ctx = logging.WithFileID(ctx, job.SourceFileID)
	if d.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.jobTimeout)
		defer cancel()
	}
	return pipeline(ctx, job)
}
