package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"lecture-script-service/internal/domain"
	"lecture-script-service/internal/domain/model"
	"lecture-script-service/internal/domain/ports/adapter"
	"lecture-script-service/internal/domain/ports/notify"
	"lecture-script-service/internal/domain/ports/repository"
	"lecture-script-service/internal/infra/logging"
	"lecture-script-service/internal/infra/metrics"
)

// Progress checkpoints for the transcription pipeline. Inference maps its
// own progress into the window between tickTranscribing and tickInferMax;
// the last stretch is reserved for persisting results.
const (
	tickValidating   = 5
	tickPrepared     = 15
	tickLoading      = 20
	tickTranscribing = 25
	tickInferMax     = 90
	tickSaving       = 95

	segmentsPerTick = 5
)

// transcribeConfig is the job's kind-specific configuration snapshot.
type transcribeConfig struct {
	ModelSize   string `json:"model_size,omitempty"`
	Device      string `json:"device,omitempty"`
	ComputeType string `json:"compute_type,omitempty"`
	Language    string `json:"language,omitempty"`
}

// TranscribePipeline turns an audio or video source into a stored
// transcript script. Every stage reports progress through the job row;
// a rejected progress write means a cancel won, and the pipeline stops.
type TranscribePipeline struct {
	jobs    repository.JobRepository
	files   repository.MediaFileRepository
	scripts repository.ScriptRepository
	txm     repository.TransactionManager

	preparer adapter.MediaPreparer
	engines  adapter.EngineProvider
	pub      notify.Publisher
	funnel   *FailureFunnel

	defaults    adapter.EngineConfig
	defaultLang string
	log         zerolog.Logger
}

func NewTranscribePipeline(
	jobs repository.JobRepository,
	files repository.MediaFileRepository,
	scripts repository.ScriptRepository,
	txm repository.TransactionManager,
	preparer adapter.MediaPreparer,
	engines adapter.EngineProvider,
	pub notify.Publisher,
	funnel *FailureFunnel,
	defaults adapter.EngineConfig,
	defaultLang string,
	log zerolog.Logger,
) *TranscribePipeline {
	return &TranscribePipeline{
		jobs:        jobs,
		files:       files,
		scripts:     scripts,
		txm:         txm,
		preparer:    preparer,
		engines:     engines,
		pub:         pub,
		funnel:      funnel,
		defaults:    defaults,
		defaultLang: defaultLang,
		log:         log.With().Str("component", "transcribe-pipeline").Logger(),
	}
}

func (p *TranscribePipeline) Run(ctx context.Context, job *model.Job) error {
	log := *logging.With(logging.WithJobID(ctx, job.ID), &p.log)
	defer logging.TraceDuration(&log, "TranscribePipeline.Run")()

	ctx, halt := context.WithCancel(ctx)
	defer halt()

	// tick persists progress and notifies subscribers. A false return
	// means the job left the processing state underneath us.
	tick := func(progress int, message string) (bool, error) {
		applied, err := p.jobs.UpdateProgress(ctx, job.ID, progress)
		if err != nil {
			return false, err
		}
		if !applied {
			log.Info().Int("progress", progress).Msg("progress rejected, job no longer processing")
			halt()
			return false, nil
		}
		job.Progress = progress
		p.pub.Publish(model.NewProgressTickEvent(job, progress, message))
		return true, nil
	}

	if ok, err := tick(tickValidating, "validating source"); err != nil || !ok {
		return err
	}

	file, err := p.files.FindByID(ctx, job.SourceFileID)
	if err != nil {
		p.funnel.Handle(ctx, job, "validate", err)
		return nil
	}
	if !file.Transcribable() {
		p.funnel.Handle(ctx, job, "validate",
			fmt.Errorf("file kind %q has no audio track: %w", file.Kind, domain.ErrValidation))
		return nil
	}

	audioPath, err := p.preparer.PrepareAudio(ctx, file.Path, job.ID)
	if err != nil {
		p.funnel.Handle(ctx, job, "prepare-audio", err)
		return nil
	}
	defer os.Remove(audioPath)

	if ok, err := tick(tickPrepared, "audio prepared"); err != nil || !ok {
		return err
	}
	if ok, err := tick(tickLoading, "loading transcription engine"); err != nil || !ok {
		return err
	}

	cfg := p.engineConfig(job)
	engine, err := p.engines.GetOrLoad(ctx, cfg.engine)
	if err != nil {
		p.funnel.Handle(ctx, job, "load-engine", err)
		return nil
	}

	if ok, err := tick(tickTranscribing, "transcribing"); err != nil || !ok {
		return err
	}

	segmentsSeen := 0
	lastTicked := 0
	onProgress := func(completedSeconds, totalSeconds float64) {
		if totalSeconds <= 0 {
			return
		}
		segmentsSeen++
		if segmentsSeen%segmentsPerTick != 0 && completedSeconds < totalSeconds {
			return
		}
		progress := tickTranscribing + int(float64(tickInferMax-tickTranscribing)*completedSeconds/totalSeconds)
		if progress > tickInferMax {
			progress = tickInferMax
		}
		if progress <= lastTicked {
			return
		}
		lastTicked = progress
		if _, err := tick(progress, fmt.Sprintf("transcribed %.0fs of %.0fs", completedSeconds, totalSeconds)); err != nil {
			log.Warn().Err(err).Msg("progress update failed")
		}
	}

	transcript, err := engine.Transcribe(ctx, audioPath, adapter.TranscribeOptions{Language: cfg.language}, onProgress)
	if err != nil {
		// Funnel is safe here even on a cancel race: a job that already
		// went terminal rejects the failed write and nothing is published.
		p.funnel.Handle(ctx, job, "transcribe", err)
		return nil
	}

	if ok, err := tick(tickSaving, "saving transcript"); err != nil || !ok {
		return err
	}

	script, err := buildTranscriptScript(job, file, transcript)
	if err != nil {
		p.funnel.Handle(ctx, job, "save-results", err)
		return nil
	}

	now := time.Now()
	err = p.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := p.scripts.Save(ctx, tx, script); err != nil {
			return err
		}
		changed, err := p.jobs.MarkCompleted(ctx, tx, job.ID, now)
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("completion lost to a terminal transition: %w", domain.ErrInvalidState)
		}
		return nil
	})
	if err != nil {
		if domain.Classify(err) == domain.CodeInvalidState {
			log.Info().Msg("job cancelled before completion could commit")
			return nil
		}
		p.funnel.Handle(ctx, job, "save-results", err)
		return nil
	}

	job.Complete()
	p.pub.Publish(model.NewCompleteEvent(job))
	metrics.JobFinished(string(job.Kind), string(model.JobStatusCompleted), job.Duration().Seconds())
	log.Info().
		Float64("audio_seconds", transcript.Duration).
		Int("segments", len(transcript.Segments)).
		Msg("transcription completed")
	return nil
}

type resolvedConfig struct {
	engine   adapter.EngineConfig
	language string
}

// engineConfig merges the job's configuration snapshot over service
// defaults. An unparsable snapshot falls back to the defaults rather than
// failing the job.
func (p *TranscribePipeline) engineConfig(job *model.Job) resolvedConfig {
	out := resolvedConfig{engine: p.defaults, language: p.defaultLang}
	if job.ConfigSnapshot == "" {
		return out
	}
	var cfg transcribeConfig
	if err := json.Unmarshal([]byte(job.ConfigSnapshot), &cfg); err != nil {
		p.log.Warn().Err(err).Str("job_id", job.ID).Msg("bad config snapshot, using defaults")
		return out
	}
	if cfg.ModelSize != "" {
		out.engine.ModelSize = cfg.ModelSize
	}
	if cfg.Device != "" {
		out.engine.Device = cfg.Device
	}
	if cfg.ComputeType != "" {
		out.engine.ComputeType = cfg.ComputeType
	}
	// "auto" is the client's way of saying "no preference"; it resolves to
	// the configured default, never to engine-side language detection.
	if cfg.Language != "" && !strings.EqualFold(cfg.Language, "auto") {
		out.language = cfg.Language
	}
	return out
}

func buildTranscriptScript(job *model.Job, file *model.MediaFile, tr *adapter.Transcript) (*model.Script, error) {
	segments, err := json.Marshal(tr.Segments)
	if err != nil {
		return nil, fmt.Errorf("encode segments: %w", err)
	}
	script := &model.Script{
		JobID:        job.ID,
		Title:        file.OriginalName,
		Content:      tr.Text,
		Format:       "text",
		Language:     tr.Language,
		SegmentsJSON: string(segments),
		CreatedAt:    time.Now(),
	}
	script.UpdateWordCount()
	return script, nil
}
