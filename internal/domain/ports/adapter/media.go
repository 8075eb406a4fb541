package adapter

import "context"

// MediaPreparer normalizes a source artifact into the shape the
// transcription engine expects (16 kHz mono wav) at a job-scoped
// temporary path. The caller owns the returned path and must delete it.
type MediaPreparer interface {
	PrepareAudio(ctx context.Context, sourcePath, jobID string) (string, error)
}
