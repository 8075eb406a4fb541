package notify

import (
	"sync"

	"github.com/rs/zerolog"

	"lecture-script-service/internal/domain/model"
	"lecture-script-service/internal/domain/ports/notify"
	"lecture-script-service/internal/infra/metrics"
)

// Scope names the three subscription granularities the hub supports.
type Scope string

const (
	ScopeJob     Scope = "job"
	ScopeProject Scope = "project"
	ScopeGlobal  Scope = "global"
)

const defaultBuffer = 16

var _ notify.Publisher = (*Hub)(nil)

// Subscriber is one consumer of progress events. Events arrive on C; the
// hub closes C when the subscriber is removed, whether by Unsubscribe or
// by pruning after a full buffer.
type Subscriber struct {
	scope  Scope
	key    string
	ch     chan model.ProgressEvent
	closed bool
}

func (s *Subscriber) C() <-chan model.ProgressEvent { return s.ch }

// Hub fans progress events out to job-, project- and global-scoped
// subscribers. Sends never block: a subscriber whose buffer is full is
// pruned and its channel closed, so one slow consumer cannot stall the
// pipelines publishing into the hub.
type Hub struct {
	log zerolog.Logger

	mu          sync.Mutex
	jobSubs     map[string][]*Subscriber
	projectSubs map[string][]*Subscriber
	globalSubs  []*Subscriber
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:         log.With().Str("component", "notify-hub").Logger(),
		jobSubs:     make(map[string][]*Subscriber),
		projectSubs: make(map[string][]*Subscriber),
	}
}

// SubscribeJob registers a consumer for events of a single job.
func (h *Hub) SubscribeJob(jobID string) *Subscriber {
	sub := newSubscriber(ScopeJob, jobID)
	h.mu.Lock()
	h.jobSubs[jobID] = append(h.jobSubs[jobID], sub)
	h.mu.Unlock()
	metrics.SubscriberConnected(string(ScopeJob))
	return sub
}

// SubscribeProject registers a consumer for events of every job in a project.
func (h *Hub) SubscribeProject(projectID string) *Subscriber {
	sub := newSubscriber(ScopeProject, projectID)
	h.mu.Lock()
	h.projectSubs[projectID] = append(h.projectSubs[projectID], sub)
	h.mu.Unlock()
	metrics.SubscriberConnected(string(ScopeProject))
	return sub
}

// SubscribeGlobal registers a consumer for every event the hub sees.
func (h *Hub) SubscribeGlobal() *Subscriber {
	sub := newSubscriber(ScopeGlobal, "")
	h.mu.Lock()
	h.globalSubs = append(h.globalSubs, sub)
	h.mu.Unlock()
	metrics.SubscriberConnected(string(ScopeGlobal))
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Calling it for
// a subscriber that was already pruned is a no-op.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

// Publish delivers an event to the job's subscribers, the project's
// subscribers (when the event carries a project ID) and every global
// subscriber. Subscribers that cannot keep up are dropped.
func (h *Hub) Publish(event model.ProgressEvent) {
	metrics.IncEventPublished(string(event.Type))

	h.mu.Lock()
	defer h.mu.Unlock()

	var stale []*Subscriber
	deliver := func(subs []*Subscriber) {
		for _, sub := range subs {
			select {
			case sub.ch <- event:
			default:
				stale = append(stale, sub)
			}
		}
	}

	deliver(h.jobSubs[event.JobID])
	if event.ProjectID != "" {
		deliver(h.projectSubs[event.ProjectID])
	}
	deliver(h.globalSubs)

	for _, sub := range stale {
		h.log.Warn().
			Str("scope", string(sub.scope)).
			Str("key", sub.key).
			Str("job_id", event.JobID).
			Msg("dropping slow subscriber")
		metrics.IncSubscriberPruned(string(sub.scope))
		h.removeLocked(sub)
	}
}

func newSubscriber(scope Scope, key string) *Subscriber {
	return &Subscriber{scope: scope, key: key, ch: make(chan model.ProgressEvent, defaultBuffer)}
}

func (h *Hub) removeLocked(sub *Subscriber) {
	if sub.closed {
		return
	}
	switch sub.scope {
	case ScopeJob:
		h.jobSubs[sub.key] = without(h.jobSubs[sub.key], sub)
		if len(h.jobSubs[sub.key]) == 0 {
			delete(h.jobSubs, sub.key)
		}
	case ScopeProject:
		h.projectSubs[sub.key] = without(h.projectSubs[sub.key], sub)
		if len(h.projectSubs[sub.key]) == 0 {
			delete(h.projectSubs, sub.key)
		}
	case ScopeGlobal:
		h.globalSubs = without(h.globalSubs, sub)
	}
	sub.closed = true
	close(sub.ch)
	metrics.SubscriberDisconnected(string(sub.scope))
}

func without(subs []*Subscriber, target *Subscriber) []*Subscriber {
	out := subs[:0]
	for _, s := range subs {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}
