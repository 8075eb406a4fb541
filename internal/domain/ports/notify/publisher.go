package notify

import "lecture-script-service/internal/domain/model"

// Publisher fans one event out to every live subscriber interested in the
// event's job, its project, or everything. Publish never blocks on a slow
// subscriber and never returns an error: a failed delivery only costs
// that one subscriber its registration.
type Publisher interface {
	Publish(event model.ProgressEvent)
}
