package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(streamSubscribers, eventsPublishedTotal, subscribersPrunedTotal)
}

var streamSubscribers = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "stream_subscribers",
		Help: "Live progress-stream subscribers, labeled by scope.",
	},
	[]string{"scope"}, // 'job', 'project', 'global'
)

var eventsPublishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Progress events published, labeled by event type.",
	},
	[]string{"type"},
)

var subscribersPrunedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stream_subscribers_pruned_total",
		Help: "Subscribers dropped after a failed delivery, labeled by scope.",
	},
	[]string{"scope"},
)

func SubscriberConnected(scope string)    { streamSubscribers.WithLabelValues(norm(scope)).Inc() }
func SubscriberDisconnected(scope string) { streamSubscribers.WithLabelValues(norm(scope)).Dec() }
func IncEventPublished(eventType string)  { eventsPublishedTotal.WithLabelValues(norm(eventType)).Inc() }
func IncSubscriberPruned(scope string)    { subscribersPrunedTotal.WithLabelValues(norm(scope)).Inc() }
