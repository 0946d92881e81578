// Package notify delivers domain events after their transaction commits.
// Delivery is best effort: a failed send is logged and never reaches the caller.
package notify

import (
	"context"
	"log"
	"sync"
	"time"
)

// Event is published once a state change is durable.
type Event struct {
	Topic      string            `json:"topic"`
	OwnerType  string            `json:"owner_type"`
	OwnerID    string            `json:"owner_id"`
	Step       string            `json:"step,omitempty"`
	Status     string            `json:"status,omitempty"`
	ActorID    string            `json:"actor_id,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Sender pushes one event to a destination.
type Sender interface {
	Send(ctx context.Context, ev Event) error
}

// Notifier is what services depend on. Notify must not block on delivery.
type Notifier interface {
	Notify(ev Event)
}

// Dispatcher sends each event on its own goroutine with a bounded timeout.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{sender: sender, timeout: timeout}
}

func (d *Dispatcher) Notify(ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("notify: sender panicked on %s: %v", ev.Topic, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sender.Send(ctx, ev); err != nil {
			log.Printf("notify: failed to send %s for %s %s: %v", ev.Topic, ev.OwnerType, ev.OwnerID, err)
		}
	}()
}

// Wait blocks until every in-flight send has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// LogSender writes events to the standard logger.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (LogSender) Send(_ context.Context, ev Event) error {
	log.Printf("[notify] %s %s/%s step=%q status=%q actor=%q", ev.Topic, ev.OwnerType, ev.OwnerID, ev.Step, ev.Status, ev.ActorID)
	return nil
}
