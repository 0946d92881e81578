// Package notifytest records notifications synchronously for assertions.
package notifytest

import (
	"sync"

	"github.com/nekogravitycat/mall-admin-backend/internal/notify"
)

type Recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func New() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

// Topics returns the recorded topics in order.
func (r *Recorder) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Topic
	}
	return out
}
