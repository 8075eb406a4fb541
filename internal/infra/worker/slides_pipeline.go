package worker

import (
	"context"
	"encoding/json"
	"fmt"
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

const (
	tickExtracting = 10
	tickGenMax     = 90
)

type slidesConfig struct {
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
	Style    string `json:"style,omitempty"`
}

// SlidesPipeline generates a spoken lecture script from an extracted slide
// deck, one AI call per slide, and stores the assembled markdown script.
type SlidesPipeline struct {
	jobs    repository.JobRepository
	files   repository.MediaFileRepository
	scripts repository.ScriptRepository
	txm     repository.TransactionManager

	extractor adapter.SlideExtractor
	ai        adapter.AIServiceAdapter
	pub       notify.Publisher
	funnel    *FailureFunnel

	defaultModel string
	defaultLang  string
	aiProvider   string
	log          zerolog.Logger
}

func NewSlidesPipeline(
	jobs repository.JobRepository,
	files repository.MediaFileRepository,
	scripts repository.ScriptRepository,
	txm repository.TransactionManager,
	extractor adapter.SlideExtractor,
	ai adapter.AIServiceAdapter,
	pub notify.Publisher,
	funnel *FailureFunnel,
	defaultModel, defaultLang, aiProvider string,
	log zerolog.Logger,
) *SlidesPipeline {
	return &SlidesPipeline{
		jobs:         jobs,
		files:        files,
		scripts:      scripts,
		txm:          txm,
		extractor:    extractor,
		ai:           ai,
		pub:          pub,
		funnel:       funnel,
		defaultModel: defaultModel,
		defaultLang:  defaultLang,
		aiProvider:   aiProvider,
		log:          log.With().Str("component", "slides-pipeline").Logger(),
	}
}

func (p *SlidesPipeline) Run(ctx context.Context, job *model.Job) error {
	log := *logging.With(logging.WithJobID(ctx, job.ID), &p.log)
	defer logging.TraceDuration(&log, "SlidesPipeline.Run")()

	ctx, halt := context.WithCancel(ctx)
	defer halt()

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
	if file.Kind != model.FileKindSlides {
		p.funnel.Handle(ctx, job, "validate",
			fmt.Errorf("file kind %q is not a slide deck: %w", file.Kind, domain.ErrValidation))
		return nil
	}

	if ok, err := tick(tickExtracting, "extracting slides"); err != nil || !ok {
		return err
	}

	slides, err := p.extractor.Extract(ctx, file.Path)
	if err != nil {
		p.funnel.Handle(ctx, job, "extract-slides", err)
		return nil
	}
	if len(slides) == 0 {
		p.funnel.Handle(ctx, job, "extract-slides",
			fmt.Errorf("deck has no extractable slides: %w", domain.ErrValidation))
		return nil
	}

	cfg := p.slideConfig(job)

	var sections []string
	for i, slide := range slides {
		select {
		case <-ctx.Done():
			// Either a cancel won (funnel write no-ops) or the job timed
			// out (funnel records it).
			p.funnel.Handle(ctx, job, "generate", ctx.Err())
			return nil
		default:
		}

		start := time.Now()
		reply, usage, err := p.ai.ChatWithUsage(ctx, cfg.Model, slidePrompt(slide, cfg.Language, cfg.Style))
		metrics.ObserveGenerationUsage(p.aiProvider, cfg.Model,
			usage.PromptTokens, usage.CompletionTokens,
			int(time.Since(start).Milliseconds()), err == nil)
		if err != nil {
			p.funnel.Handle(ctx, job, "generate",
				fmt.Errorf("slide %d: %v: %w", slide.Number, err, domain.ErrProcessing))
			return nil
		}
		sections = append(sections, formatSection(slide, reply))

		progress := tickExtracting + (tickGenMax-tickExtracting)*(i+1)/len(slides)
		if progress > tickGenMax {
			progress = tickGenMax
		}
		if ok, err := tick(progress, fmt.Sprintf("generated script for slide %d/%d", i+1, len(slides))); err != nil || !ok {
			return err
		}
	}

	if ok, err := tick(tickSaving, "saving script"); err != nil || !ok {
		return err
	}

	script := &model.Script{
		JobID:     job.ID,
		Title:     file.OriginalName,
		Content:   strings.Join(sections, "\n\n"),
		Format:    "markdown",
		Language:  cfg.Language,
		CreatedAt: time.Now(),
	}
	script.UpdateWordCount()

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
	log.Info().Int("slides", len(slides)).Int("words", script.WordCount).Msg("script generation completed")
	return nil
}

func (p *SlidesPipeline) slideConfig(job *model.Job) slidesConfig {
	out := slidesConfig{Model: p.defaultModel, Language: p.defaultLang}
	if job.ConfigSnapshot == "" {
		return out
	}
	var cfg slidesConfig
	if err := json.Unmarshal([]byte(job.ConfigSnapshot), &cfg); err != nil {
		p.log.Warn().Err(err).Str("job_id", job.ID).Msg("bad config snapshot, using defaults")
		return out
	}
	if cfg.Model != "" {
		out.Model = cfg.Model
	}
	if cfg.Language != "" && !strings.EqualFold(cfg.Language, "auto") {
		out.Language = cfg.Language
	}
	out.Style = cfg.Style
	return out
}

func slidePrompt(slide adapter.Slide, language, style string) []adapter.Message {
	system := "You are a lecturer preparing spoken teaching notes. " +
		"Write a natural, spoken-style lecture script for the slide content the user provides. " +
		"Respond with the script only, no preamble."
	if language != "" {
		system += fmt.Sprintf(" Write in language %q.", language)
	}
	if style != "" {
		system += fmt.Sprintf(" Style guidance: %s.", style)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Slide %d", slide.Number)
	if slide.Title != "" {
		fmt.Fprintf(&b, ": %s", slide.Title)
	}
	b.WriteString("\n\n")
	b.WriteString(slide.Text)

	return []adapter.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: b.String()},
	}
}

func formatSection(slide adapter.Slide, script string) string {
	title := slide.Title
	if title == "" {
		title = fmt.Sprintf("Slide %d", slide.Number)
	}
	return fmt.Sprintf("## %s\n\n%s", title, strings.TrimSpace(script))
}
