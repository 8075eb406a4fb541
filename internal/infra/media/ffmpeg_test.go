//go:build !integration

package media_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"lecture-script-service/internal/domain"
	"lecture-script-service/internal/infra/media"
)

func TestFFmpegPreparer(t *testing.T) {
	t.Run("a missing source is not found", func(t *testing.T) {
		p := media.NewFFmpegPreparer("ffmpeg", t.TempDir())

		_, err := p.PrepareAudio(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"), "job-1")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got: %v", err)
		}
	})
}
