//go:build !integration

package notify_test

import (
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"lecture-script-service/internal/domain/model"
	"lecture-script-service/internal/infra/notify"
)

func newHub() *notify.Hub {
	return notify.NewHub(zerolog.New(io.Discard))
}

func progressEvent(jobID, projectID string) model.ProgressEvent {
	job := &model.Job{ID: jobID, ProjectID: projectID, Status: model.JobStatusProcessing}
	return model.NewProgressTickEvent(job, 25, "transcribing")
}

func receive(t *testing.T, sub *notify.Subscriber) model.ProgressEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.C():
		if !ok {
			t.Fatal("subscriber channel closed unexpectedly")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return model.ProgressEvent{}
}

func TestHub_FanOut(t *testing.T) {
	t.Run("delivers to job, project and global scopes", func(t *testing.T) {
		hub := newHub()
		jobSub := hub.SubscribeJob("job-1")
		projSub := hub.SubscribeProject("proj-1")
		globalSub := hub.SubscribeGlobal()
		defer hub.Unsubscribe(jobSub)
		defer hub.Unsubscribe(projSub)
		defer hub.Unsubscribe(globalSub)

		hub.Publish(progressEvent("job-1", "proj-1"))

		for _, sub := range []*notify.Subscriber{jobSub, projSub, globalSub} {
			ev := receive(t, sub)
			if ev.JobID != "job-1" {
				t.Errorf("expected job-1, got %s", ev.JobID)
			}
		}
	})

	t.Run("does not deliver to other jobs or projects", func(t *testing.T) {
		hub := newHub()
		otherJob := hub.SubscribeJob("job-2")
		otherProj := hub.SubscribeProject("proj-2")
		defer hub.Unsubscribe(otherJob)
		defer hub.Unsubscribe(otherProj)

		hub.Publish(progressEvent("job-1", "proj-1"))

		select {
		case ev := <-otherJob.C():
			t.Fatalf("unexpected delivery to other job: %+v", ev)
		case ev := <-otherProj.C():
			t.Fatalf("unexpected delivery to other project: %+v", ev)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("event without a project only reaches job and global scopes", func(t *testing.T) {
		hub := newHub()
		projSub := hub.SubscribeProject("")
		defer hub.Unsubscribe(projSub)

		hub.Publish(progressEvent("job-1", ""))

		select {
		case ev := <-projSub.C():
			t.Fatalf("unexpected delivery: %+v", ev)
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestHub_PrunesSlowSubscribers(t *testing.T) {
	hub := newHub()
	slow := hub.SubscribeJob("job-1")
	healthy := hub.SubscribeJob("job-1")
	defer hub.Unsubscribe(healthy)

	// Fill the slow subscriber's buffer without draining it.
	for i := 0; i < 64; i++ {
		hub.Publish(progressEvent("job-1", ""))
		receive(t, healthy)
	}

	// The slow subscriber's channel must be closed once pruned.
	closed := false
	for !closed {
		select {
		case _, ok := <-slow.C():
			if !ok {
				closed = true
			}
		case <-time.After(time.Second):
			t.Fatal("slow subscriber was never pruned")
		}
	}

	// The healthy subscriber keeps receiving.
	hub.Publish(progressEvent("job-1", ""))
	receive(t, healthy)

	// Unsubscribing a pruned subscriber must be a no-op.
	hub.Unsubscribe(slow)
}

func TestHub_UnsubscribeIsIdempotent(t *testing.T) {
	hub := newHub()
	sub := hub.SubscribeGlobal()

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)

	if _, ok := <-sub.C(); ok {
		t.Error("expected a closed channel after unsubscribe")
	}
}
