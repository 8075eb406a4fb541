package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lecture-script-service/internal/config"
	"lecture-script-service/internal/domain/ports/adapter"
	aiAdapters "lecture-script-service/internal/infra/adapters/ai"
	"lecture-script-service/internal/infra/asr"
	pg "lecture-script-service/internal/infra/db/postgres"
	"lecture-script-service/internal/infra/logging"
	"lecture-script-service/internal/infra/media"
	"lecture-script-service/internal/infra/metrics"
	"lecture-script-service/internal/infra/notify"
	red "lecture-script-service/internal/infra/redis"
	"lecture-script-service/internal/infra/slides"
	"lecture-script-service/internal/infra/web"
	"lecture-script-service/internal/infra/worker"
	"lecture-script-service/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop AI, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	jobCache := red.NewJobCache(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	jobRepo := pg.NewJobRepo(pool, jobCache)
	fileRepo := pg.NewMediaFileRepo(pool)
	scriptRepo := pg.NewScriptRepo(pool)
	txm := pg.NewTxManager(pool)

	// ---- AI adapter (Gemini -> OpenAI -> noop in dev) ----
	var ai adapter.AIServiceAdapter
	provider := "none"
	switch {
	case cfg.AI.GeminiKey != "":
		ai, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel, 0)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		provider = "gemini"
	case cfg.AI.OpenAIKey != "":
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel, cfg.AI.RequestTimeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		provider = "openai"
	case cfg.Runtime.Dev:
		ai = aiAdapters.NewNoOpAI()
		provider = "noop"
	default:
		logger.Fatal().Msgf("no AI provider configured: set ai.gemini_key or ai.openai_key in %s", *cfgPath)
	}
	ai = aiAdapters.NewRetryingAI(ai, provider, cfg.AI.MaxRetries, cfg.AI.RetryDelay)
	ai = aiAdapters.NewLimitedAI(ai, cfg.AI.ConcurrentLimit)
	logger.Info().Str("provider", provider).Str("model", cfg.AI.DefaultModel).Msg("AI adapter ready")

	// ---- Domain collaborators ----
	hub := notify.NewHub(*logger)
	engines := asr.NewManager(cfg.ASR.BinPath, cfg.ASR.ModelDir)
	preparer := media.NewFFmpegPreparer(cfg.Media.FFmpegPath, cfg.Media.TmpDir)
	extractor := slides.NewSidecarExtractor()

	// ---- Pipelines and dispatch ----
	funnel := worker.NewFailureFunnel(jobRepo, hub, *logger)
	engineDefaults := adapter.EngineConfig{
		ModelSize:   cfg.ASR.ModelSize,
		Device:      cfg.ASR.Device,
		ComputeType: cfg.ASR.ComputeType,
	}
	transcribePipe := worker.NewTranscribePipeline(
		jobRepo, fileRepo, scriptRepo, txm,
		preparer, engines, hub, funnel,
		engineDefaults, cfg.ASR.DefaultLanguage, *logger,
	)
	slidesPipe := worker.NewSlidesPipeline(
		jobRepo, fileRepo, scriptRepo, txm,
		extractor, ai, hub, funnel,
		cfg.AI.DefaultModel, cfg.ASR.DefaultLanguage, provider, *logger,
	)
	pool2 := worker.NewPool(cfg.Worker.Count, cfg.Worker.QueueSize, *logger)
	dispatcher := worker.NewDispatcher(pool2, transcribePipe, slidesPipe, funnel, cfg.Worker.JobTimeout, *logger)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// ---- Use cases and HTTP ----
	jobUC := usecase.NewJobUseCase(jobRepo, fileRepo, scriptRepo, dispatcher, hub, *logger)
	server := web.NewServer(jobUC, hub, ai, cfg.Server.APIKey, logger)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // event streams stay open indefinitely
	}
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
