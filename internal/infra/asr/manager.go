package asr

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"golang.org/x/sync/singleflight"

	"lecture-script-service/internal/domain/ports/adapter"
)

// LoaderFunc builds an engine for a normalized configuration. Split out so
// tests can count loads without touching the whisper binary.
type LoaderFunc func(cfg adapter.EngineConfig) (adapter.TranscriptionEngine, error)

var _ adapter.EngineProvider = (*Manager)(nil)

// Manager caches loaded transcription engines by configuration. Concurrent
// requests for the same configuration share a single load via singleflight;
// failed loads are never cached, so the next request retries.
type Manager struct {
	loader LoaderFunc

	mu      sync.RWMutex
	engines map[string]adapter.TranscriptionEngine
	group   singleflight.Group

	hasGPU func() bool
}

func NewManager(binPath, modelDir string) *Manager {
	return &Manager{
		loader: func(cfg adapter.EngineConfig) (adapter.TranscriptionEngine, error) {
			return NewWhisperEngine(binPath, modelDir, cfg)
		},
		engines: make(map[string]adapter.TranscriptionEngine),
		hasGPU:  detectGPU,
	}
}

// NewManagerWithLoader is used by tests to stub out engine construction.
func NewManagerWithLoader(loader LoaderFunc) *Manager {
	return &Manager{
		loader:  loader,
		engines: make(map[string]adapter.TranscriptionEngine),
		hasGPU:  func() bool { return false },
	}
}

func (m *Manager) GetOrLoad(ctx context.Context, cfg adapter.EngineConfig) (adapter.TranscriptionEngine, error) {
	cfg = m.normalize(cfg)
	key := engineKey(cfg)

	m.mu.RLock()
	eng, ok := m.engines[key]
	m.mu.RUnlock()
	if ok {
		return eng, nil
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		m.mu.RLock()
		eng, ok := m.engines[key]
		m.mu.RUnlock()
		if ok {
			return eng, nil
		}
		eng, err := m.loader(cfg)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.engines[key] = eng
		m.mu.Unlock()
		return eng, nil
	})
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return v.(adapter.TranscriptionEngine), nil
}

// normalize resolves "auto" placeholders to concrete values so that two
// requests meaning the same thing share one cache entry.
func (m *Manager) normalize(cfg adapter.EngineConfig) adapter.EngineConfig {
	if cfg.ModelSize == "" {
		cfg.ModelSize = "base"
	}
	if cfg.Device == "" || cfg.Device == "auto" {
		if m.hasGPU() {
			cfg.Device = "cuda"
		} else {
			cfg.Device = "cpu"
		}
	}
	if cfg.ComputeType == "" || cfg.ComputeType == "auto" {
		if cfg.Device == "cuda" {
			cfg.ComputeType = "float16"
		} else {
			cfg.ComputeType = "int8"
		}
	}
	return cfg
}

func engineKey(cfg adapter.EngineConfig) string {
	return fmt.Sprintf("%s|%s|%s", cfg.ModelSize, cfg.Device, cfg.ComputeType)
}

func detectGPU() bool {
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}
