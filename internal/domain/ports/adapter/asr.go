package adapter

import "context"

// EngineConfig is the full key a loaded engine is cached under. Two jobs
// with the same tuple share one engine instance for the process lifetime.
type EngineConfig struct {
	ModelSize   string // tiny | base | small | medium | large-v2 | large-v3
	Device      string // cpu | cuda | auto
	ComputeType string // int8 | float16 | float32 | auto
}

type TranscribeOptions struct {
	Language string
}

type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type Transcript struct {
	Text     string
	Segments []Segment
	Language string
	Duration float64
}

// ProgressFunc reports inference progress as audio time covered so far
// against the total audio length, both in seconds. The engine calls it
// once per produced segment while inference is still running, never
// concurrently. A totalSeconds of zero means the length is unknown and
// the call carries no usable ratio.
type ProgressFunc func(completedSeconds, totalSeconds float64)

// TranscriptionEngine is one loaded inference resource.
type TranscriptionEngine interface {
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOptions, onProgress ProgressFunc) (*Transcript, error)
}

// EngineProvider hands out shared engines, loading each configuration at
// most once concurrently. A failed load is not cached; the next call
// retries from scratch.
type EngineProvider interface {
	GetOrLoad(ctx context.Context, cfg EngineConfig) (TranscriptionEngine, error)
}
