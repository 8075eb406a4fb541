package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"lecture-script-service/internal/domain/model"
	"lecture-script-service/internal/infra/notify"
	"lecture-script-service/internal/usecase"
)

const heartbeatInterval = 15 * time.Second

// streamJobHandler serves the live event stream of one job over SSE. A
// subscriber connecting to a job that already finished gets one synthetic
// terminal event and the stream closes; otherwise the stream ends after
// the job's terminal event is delivered.
func streamJobHandler(jobUC *usecase.JobUseCase, hub *notify.Hub, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "id")

		job, err := jobUC.GetJob(r.Context(), jobID)
		if err != nil {
			writeError(w, err)
			return
		}

		flusher, ok := prepareStream(w)
		if !ok {
			return
		}

		if job.Terminal() {
			writeSSE(w, flusher, terminalEvent(job))
			return
		}

		sub := hub.SubscribeJob(jobID)
		defer hub.Unsubscribe(sub)

		// The job may have finished between the read above and the
		// subscription; re-check so the client is not left hanging.
		if job, err := jobUC.GetJob(r.Context(), jobID); err == nil && job.Terminal() {
			writeSSE(w, flusher, terminalEvent(job))
			return
		}

		pump(r, w, flusher, sub, log, true)
	}
}

// streamProjectHandler serves events for every job in a project. The
// stream stays open until the client goes away.
func streamProjectHandler(hub *notify.Hub, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := prepareStream(w)
		if !ok {
			return
		}
		sub := hub.SubscribeProject(chi.URLParam(r, "id"))
		defer hub.Unsubscribe(sub)
		pump(r, w, flusher, sub, log, false)
	}
}

// streamGlobalHandler serves every event the service emits.
func streamGlobalHandler(hub *notify.Hub, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := prepareStream(w)
		if !ok {
			return
		}
		sub := hub.SubscribeGlobal()
		defer hub.Unsubscribe(sub)
		pump(r, w, flusher, sub, log, false)
	}
}

func prepareStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}

// pump forwards hub events to the client until the client disconnects,
// the subscriber is pruned, or (for single-job streams) a terminal event
// is delivered. Heartbeat comments keep intermediaries from timing out
// idle streams.
func pump(r *http.Request, w http.ResponseWriter, flusher http.Flusher, sub *notify.Subscriber, log *zerolog.Logger, closeOnTerminal bool) {
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, open := <-sub.C():
			if !open {
				return
			}
			if err := writeSSE(w, flusher, ev); err != nil {
				log.Debug().Err(err).Msg("stream write failed")
				return
			}
			if closeOnTerminal && isTerminalEvent(ev) {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev model.ProgressEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func isTerminalEvent(ev model.ProgressEvent) bool {
	switch ev.Type {
	case model.EventTypeComplete, model.EventTypeError:
		return true
	case model.EventTypeStatusChange:
		return ev.Status == model.JobStatusCancelled ||
			ev.Status == model.JobStatusCompleted ||
			ev.Status == model.JobStatusFailed
	}
	return false
}

// terminalEvent synthesizes the event a late subscriber missed.
func terminalEvent(job *model.Job) model.ProgressEvent {
	switch job.Status {
	case model.JobStatusCompleted:
		return model.NewCompleteEvent(job)
	case model.JobStatusFailed:
		return model.NewErrorEvent(job, job.ErrorMessage)
	default:
		return model.NewStatusChangeEvent(job)
	}
}
