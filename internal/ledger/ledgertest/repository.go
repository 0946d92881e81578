// Package ledgertest provides an in-memory ledger.Repository.
package ledgertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/mall-admin-backend/internal/ledger"
)

// Repository keeps events in memory. Owner existence is answered by the
// lookup registered for each owner type; unregistered types have no owners.
type Repository struct {
	mu     sync.Mutex
	events []*ledger.Event
	seq    int64
	owners map[ledger.OwnerType]func(id string) bool

	// FailInsert, when set, is returned by the next Insert and then cleared.
	FailInsert error
}

func New() *Repository {
	return &Repository{owners: make(map[ledger.OwnerType]func(string) bool)}
}

// RegisterOwners answers OwnerExists for ownerType.
func (r *Repository) RegisterOwners(ownerType ledger.OwnerType, exists func(id string) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[ownerType] = exists
}

// Snapshot implements dbtest.Snapshotter.
func (r *Repository) Snapshot() func() {
	r.mu.Lock()
	saved := append([]*ledger.Event(nil), r.events...)
	seq := r.seq
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.events = saved
		r.seq = seq
		r.mu.Unlock()
	}
}

func (r *Repository) OwnerExists(_ context.Context, ownerType ledger.OwnerType, ownerID string) (bool, error) {
	r.mu.Lock()
	lookup, ok := r.owners[ownerType]
	r.mu.Unlock()
	if !ok {
		return false, nil
	}
	return lookup(ownerID), nil
}

func (r *Repository) LatestOccurredAt(_ context.Context, ownerType ledger.OwnerType, ownerID string) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *time.Time
	for _, ev := range r.events {
		if ev.OwnerType != ownerType || ev.OwnerID != ownerID {
			continue
		}
		if latest == nil || ev.OccurredAt.After(*latest) {
			ts := ev.OccurredAt
			latest = &ts
		}
	}
	return latest, nil
}

func (r *Repository) Insert(_ context.Context, ev *ledger.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.FailInsert; err != nil {
		r.FailInsert = nil
		return err
	}
	r.seq++
	ev.Seq = r.seq
	ev.ID = uuid.NewString()
	stored := *ev
	r.events = append(r.events, &stored)
	return nil
}

func (r *Repository) List(_ context.Context, ownerType ledger.OwnerType, ownerID string) ([]*ledger.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*ledger.Event
	for _, ev := range r.events {
		if ev.OwnerType == ownerType && ev.OwnerID == ownerID {
			cp := *ev
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

// Count returns the number of stored events across all owners.
func (r *Repository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
