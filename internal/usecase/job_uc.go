package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lecture-script-service/internal/domain"
	"lecture-script-service/internal/domain/model"
	"lecture-script-service/internal/domain/ports/notify"
	"lecture-script-service/internal/domain/ports/repository"
	"lecture-script-service/internal/infra/asr"
	"lecture-script-service/internal/infra/metrics"
)

// Dispatcher hands a started job to its execution pipeline. Implemented by
// the worker layer; defined here so the use case depends on behavior, not
// on worker wiring.
type Dispatcher interface {
	Dispatch(job *model.Job) error
}

// JobUseCase implements the job control operations: create, start, cancel,
// inspect. Execution itself happens behind the Dispatcher; control
// transitions are settled by conditional repository writes so racing
// callers resolve to exactly one winner.
type JobUseCase struct {
	jobs       repository.JobRepository
	files      repository.MediaFileRepository
	scripts    repository.ScriptRepository
	dispatcher Dispatcher
	pub        notify.Publisher
	log        zerolog.Logger
}

func NewJobUseCase(
	jobs repository.JobRepository,
	files repository.MediaFileRepository,
	scripts repository.ScriptRepository,
	dispatcher Dispatcher,
	pub notify.Publisher,
	log zerolog.Logger,
) *JobUseCase {
	return &JobUseCase{
		jobs:       jobs,
		files:      files,
		scripts:    scripts,
		dispatcher: dispatcher,
		pub:        pub,
		log:        log.With().Str("component", "job-usecase").Logger(),
	}
}

// CreateJob registers a new pending job against an existing source file.
func (uc *JobUseCase) CreateJob(ctx context.Context, kind model.JobKind, sourceFileID, projectID, configSnapshot string) (*model.Job, error) {
	if !model.ValidJobKind(kind) {
		return nil, fmt.Errorf("unknown job kind %q: %w", kind, domain.ErrValidation)
	}
	if sourceFileID == "" {
		return nil, fmt.Errorf("source file id required: %w", domain.ErrValidation)
	}
	if configSnapshot != "" && !json.Valid([]byte(configSnapshot)) {
		return nil, fmt.Errorf("config snapshot is not valid JSON: %w", domain.ErrValidation)
	}
	if kind == model.JobKindMediaToScript && configSnapshot != "" {
		var cfg struct {
			ModelSize string `json:"model_size"`
			Language  string `json:"language"`
		}
		if err := json.Unmarshal([]byte(configSnapshot), &cfg); err != nil {
			return nil, fmt.Errorf("decode config snapshot: %w", domain.ErrValidation)
		}
		if cfg.ModelSize != "" && !asr.ValidModelSize(cfg.ModelSize) {
			return nil, fmt.Errorf("unknown model size %q: %w", cfg.ModelSize, domain.ErrValidation)
		}
		if cfg.Language != "" && !asr.ValidLanguage(cfg.Language) {
			return nil, fmt.Errorf("unsupported language %q: %w", cfg.Language, domain.ErrValidation)
		}
	}

	file, err := uc.files.FindByID(ctx, sourceFileID)
	if err != nil {
		return nil, fmt.Errorf("source file %q: %w", sourceFileID, err)
	}
	if kind == model.JobKindMediaToScript && !file.Transcribable() {
		return nil, fmt.Errorf("file kind %q has no audio track: %w", file.Kind, domain.ErrValidation)
	}
	if kind == model.JobKindSlidesToScript && file.Kind != model.FileKindSlides {
		return nil, fmt.Errorf("file kind %q is not a slide deck: %w", file.Kind, domain.ErrValidation)
	}

	job := model.NewJob(kind, sourceFileID, projectID, configSnapshot)
	if err := uc.jobs.Save(ctx, job); err != nil {
		return nil, err
	}
	metrics.IncJobCreated(string(kind))
	uc.log.Info().
		Str("job_id", job.ID).
		Str("kind", string(kind)).
		Str("file_id", sourceFileID).
		Msg("job created")
	return job, nil
}

// StartJob moves a pending job to processing and dispatches it. Starting a
// job that is not pending is an invalid-state error. Dispatch rejection
// (saturated queue) does not fail the call: the job is already marked
// failed through the funnel and the caller sees that state on read.
func (uc *JobUseCase) StartJob(ctx context.Context, id string) (*model.Job, error) {
	job, err := uc.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	changed, err := uc.jobs.MarkStarted(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, fmt.Errorf("start job in %s: %w", job.Status, domain.ErrInvalidState)
	}

	job.Status = model.JobStatusProcessing
	job.StartedAt = &now
	job.UpdatedAt = now
	metrics.JobStarted()
	uc.pub.Publish(model.NewStatusChangeEvent(job))

	if err := uc.dispatcher.Dispatch(job); err != nil {
		uc.log.Warn().Err(err).Str("job_id", id).Msg("dispatch rejected")
	}
	return job, nil
}

// CancelJob applies pending|processing -> cancelled. In-flight pipeline
// work notices the terminal row on its next progress write and stops.
func (uc *JobUseCase) CancelJob(ctx context.Context, id string) (*model.Job, error) {
	job, err := uc.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	wasProcessing := job.Status == model.JobStatusProcessing

	changed, err := uc.jobs.MarkCancelled(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, fmt.Errorf("cancel job in %s: %w", job.Status, domain.ErrInvalidState)
	}

	job.Status = model.JobStatusCancelled
	job.UpdatedAt = time.Now()
	metrics.JobCancelled(string(job.Kind), wasProcessing)
	uc.pub.Publish(model.NewStatusChangeEvent(job))
	uc.log.Info().Str("job_id", id).Msg("job cancelled")
	return job, nil
}

func (uc *JobUseCase) GetJob(ctx context.Context, id string) (*model.Job, error) {
	return uc.jobs.FindByID(ctx, id)
}

// ListJobs returns jobs newest first, optionally filtered by status.
func (uc *JobUseCase) ListJobs(ctx context.Context, status model.JobStatus, offset, limit int) ([]*model.Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return uc.jobs.List(ctx, status, offset, limit)
}

// GetJobScript returns the generated output of a completed job.
func (uc *JobUseCase) GetJobScript(ctx context.Context, jobID string) (*model.Script, error) {
	return uc.scripts.FindByJobID(ctx, jobID)
}
