//go:build !integration

package model_test

import (
	"errors"
	"testing"

	"lecture-script-service/internal/domain"
	"lecture-script-service/internal/domain/model"
)

func TestJob_Start(t *testing.T) {
	t.Run("should move a pending job to processing", func(t *testing.T) {
		job := model.NewJob(model.JobKindMediaToScript, "file-1", "", "")

		if err := job.Start(); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if job.Status != model.JobStatusProcessing {
			t.Errorf("expected status 'processing', got '%s'", job.Status)
		}
		if job.StartedAt == nil {
			t.Error("expected StartedAt to be set")
		}
	})

	t.Run("should reject starting a job twice", func(t *testing.T) {
		job := model.NewJob(model.JobKindMediaToScript, "file-1", "", "")
		_ = job.Start()

		err := job.Start()
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got: %v", err)
		}
	})
}

func TestJob_Tick(t *testing.T) {
	t.Run("should accept monotonically increasing progress", func(t *testing.T) {
		job := model.NewJob(model.JobKindMediaToScript, "file-1", "", "")
		_ = job.Start()

		for _, p := range []int{5, 25, 90} {
			if err := job.Tick(p); err != nil {
				t.Fatalf("tick %d: %v", p, err)
			}
		}
		if job.Progress != 90 {
			t.Errorf("expected progress 90, got %d", job.Progress)
		}
	})

	t.Run("should reject regressing progress", func(t *testing.T) {
		job := model.NewJob(model.JobKindMediaToScript, "file-1", "", "")
		_ = job.Start()
		_ = job.Tick(50)

		err := job.Tick(40)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got: %v", err)
		}
		if job.Progress != 50 {
			t.Errorf("progress should stay 50, got %d", job.Progress)
		}
	})

	t.Run("should cap progress at 100", func(t *testing.T) {
		job := model.NewJob(model.JobKindMediaToScript, "file-1", "", "")
		_ = job.Start()

		if err := job.Tick(250); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if job.Progress != 100 {
			t.Errorf("expected progress 100, got %d", job.Progress)
		}
	})

	t.Run("should reject ticks on a job that is not processing", func(t *testing.T) {
		job := model.NewJob(model.JobKindMediaToScript, "file-1", "", "")

		if err := job.Tick(10); !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState for pending job, got: %v", err)
		}

		_ = job.Start()
		_ = job.Cancel()
		if err := job.Tick(10); !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState for cancelled job, got: %v", err)
		}
	})
}

func TestJob_TerminalRaces(t *testing.T) {
	t.Run("late completion must not overwrite a cancel", func(t *testing.T) {
		job := model.NewJob(model.JobKindMediaToScript, "file-1", "", "")
		_ = job.Start()
		_ = job.Cancel()

		job.Complete()

		if job.Status != model.JobStatusCancelled {
			t.Errorf("expected status 'cancelled', got '%s'", job.Status)
		}
	})

	t.Run("late failure must not overwrite a completion", func(t *testing.T) {
		job := model.NewJob(model.JobKindMediaToScript, "file-1", "", "")
		_ = job.Start()
		job.Complete()

		job.Fail("too late")

		if job.Status != model.JobStatusCompleted {
			t.Errorf("expected status 'completed', got '%s'", job.Status)
		}
		if job.ErrorMessage != "" {
			t.Errorf("expected no error message, got '%s'", job.ErrorMessage)
		}
	})

	t.Run("failure from pending is allowed", func(t *testing.T) {
		job := model.NewJob(model.JobKindSlidesToScript, "file-1", "", "")

		job.Fail("validation rejected the source")

		if job.Status != model.JobStatusFailed {
			t.Errorf("expected status 'failed', got '%s'", job.Status)
		}
		if job.ErrorMessage == "" {
			t.Error("expected the failure reason to be recorded")
		}
	})

	t.Run("cancel from a terminal state errors", func(t *testing.T) {
		job := model.NewJob(model.JobKindMediaToScript, "file-1", "", "")
		_ = job.Start()
		job.Complete()

		if err := job.Cancel(); !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got: %v", err)
		}
	})
}

func TestJob_Complete(t *testing.T) {
	job := model.NewJob(model.JobKindMediaToScript, "file-1", "proj-1", "")
	_ = job.Start()
	_ = job.Tick(95)

	job.Complete()

	if job.Status != model.JobStatusCompleted {
		t.Fatalf("expected status 'completed', got '%s'", job.Status)
	}
	if job.Progress != 100 {
		t.Errorf("completion should force progress to 100, got %d", job.Progress)
	}
	if job.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
	if job.Duration() < 0 {
		t.Error("expected a non-negative duration")
	}
}
