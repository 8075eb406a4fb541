package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"lecture-script-service/internal/domain"
	"lecture-script-service/internal/domain/ports/adapter"
)

var _ adapter.MediaPreparer = (*FFmpegPreparer)(nil)

// FFmpegPreparer converts arbitrary audio/video input into the 16kHz mono
// WAV that the transcription engine expects. Output files are job-scoped
// so the pipeline can clean them up after it finishes.
type FFmpegPreparer struct {
	binPath string
	tmpDir  string
}

func NewFFmpegPreparer(binPath, tmpDir string) *FFmpegPreparer {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &FFmpegPreparer{binPath: binPath, tmpDir: tmpDir}
}

func (p *FFmpegPreparer) PrepareAudio(ctx context.Context, sourcePath, jobID string) (string, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return "", fmt.Errorf("source file %q: %w", sourcePath, domain.ErrNotFound)
	}
	if err := os.MkdirAll(p.tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	outPath := filepath.Join(p.tmpDir, fmt.Sprintf("job-%s.wav", jobID))
	args := []string{
		"-y",
		"-i", sourcePath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outPath,
	}

	cmd := exec.CommandContext(ctx, p.binPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg: %v: %s: %w", err, tail(stderr.String(), 400), domain.ErrProcessing)
	}
	return outPath, nil
}

// tail returns at most n trailing bytes of s; ffmpeg puts the useful
// diagnostics at the end of its stderr stream.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
