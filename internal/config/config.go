package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"` // bearer key for the API; while unset every /api request is rejected
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // job snapshot cache ttl
}

type AIConfig struct {
	OpenAIKey      string        `yaml:"openai_key"`
	GeminiKey      string        `yaml:"gemini_key"`
	GeminiURL      string        `yaml:"gemini_url"`
	DefaultModel   string        `yaml:"default_model"`
	ConcurrentLimit int          `yaml:"concurrent_limit"` // max concurrent AI calls
	MaxRetries     int           `yaml:"max_retries"`      // retries on rate-limit responses
	RetryDelay     time.Duration `yaml:"retry_delay"`      // base backoff delay
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type ASRConfig struct {
	ModelSize       string `yaml:"model_size"`   // tiny|base|small|medium|large-v2|large-v3
	Device          string `yaml:"device"`       // cpu|cuda|auto
	ComputeType     string `yaml:"compute_type"` // int8|float16|float32|auto
	BinPath         string `yaml:"bin_path"`     // whisper CLI binary
	ModelDir        string `yaml:"model_dir"`
	DefaultLanguage string `yaml:"default_language"` // used whenever a job asks for "auto"
}

type MediaConfig struct {
	FFmpegPath string `yaml:"ffmpeg_path"`
	TmpDir     string `yaml:"tmp_dir"`
}

type WorkerConfig struct {
	Count      int           `yaml:"count"`
	QueueSize  int           `yaml:"queue_size"`
	JobTimeout time.Duration `yaml:"job_timeout"` // 0 = no wall-clock bound on a pipeline
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	ASR      ASRConfig      `yaml:"asr"`
	Media    MediaConfig    `yaml:"media"`
	Worker   WorkerConfig   `yaml:"worker"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = 2 * time.Second
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.MaxRetries <= 0 {
		cfg.AI.MaxRetries = 3
	}
	if cfg.AI.RetryDelay <= 0 {
		cfg.AI.RetryDelay = 2 * time.Second
	}
	if cfg.AI.RequestTimeout <= 0 {
		cfg.AI.RequestTimeout = 60 * time.Second
	}
	if cfg.ASR.ModelSize == "" {
		cfg.ASR.ModelSize = "base"
	}
	if cfg.ASR.Device == "" {
		cfg.ASR.Device = "auto"
	}
	if cfg.ASR.ComputeType == "" {
		cfg.ASR.ComputeType = "auto"
	}
	if cfg.ASR.BinPath == "" {
		cfg.ASR.BinPath = "whisper-ctranslate2"
	}
	if cfg.ASR.DefaultLanguage == "" {
		// Explicit fallback instead of auto-detection; detection fails on
		// short or noisy inputs.
		cfg.ASR.DefaultLanguage = "zh"
	}
	if cfg.Media.FFmpegPath == "" {
		cfg.Media.FFmpegPath = "ffmpeg"
	}
	if cfg.Media.TmpDir == "" {
		cfg.Media.TmpDir = os.TempDir()
	}
	if cfg.Worker.Count <= 0 {
		cfg.Worker.Count = 2
	}
	if cfg.Worker.QueueSize <= 0 {
		cfg.Worker.QueueSize = cfg.Worker.Count * 4
	}
}
