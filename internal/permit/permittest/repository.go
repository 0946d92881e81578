// Package permittest provides an in-memory permit.Repository.
package permittest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/mall-admin-backend/internal/approval"
	"github.com/nekogravitycat/mall-admin-backend/internal/permit"
)

type Repository struct {
	mu      sync.Mutex
	permits map[string]*permit.Permit
	clock   time.Time
}

func New() *Repository {
	return &Repository{
		permits: make(map[string]*permit.Permit),
		clock:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Exists reports whether a permit with id is stored.
func (r *Repository) Exists(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.permits[id]
	return ok
}

// Raw returns a copy of the stored permit, bypassing the service.
func (r *Repository) Raw(id string) (permit.Permit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.permits[id]
	if !ok {
		return permit.Permit{}, false
	}
	return *clone(p), true
}

// Snapshot implements dbtest.Snapshotter.
func (r *Repository) Snapshot() func() {
	r.mu.Lock()
	saved := make(map[string]*permit.Permit, len(r.permits))
	for k, v := range r.permits {
		saved[k] = clone(v)
	}
	clock := r.clock
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.permits = saved
		r.clock = clock
		r.mu.Unlock()
	}
}

// tick hands out strictly increasing creation times so ordering is stable.
func (r *Repository) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *Repository) Create(_ context.Context, p *permit.Permit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.NewString()
	p.CreatedAt = r.tick()
	p.UpdatedAt = p.CreatedAt
	for i := range p.Workers {
		p.Workers[i].ID = uuid.NewString()
	}
	r.permits[p.ID] = clone(p)
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*permit.Permit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.permits[id]
	if !ok {
		return nil, permit.ErrNotFound
	}
	return clone(p), nil
}

func (r *Repository) GetForUpdate(ctx context.Context, id string) (*permit.Permit, error) {
	return r.GetByID(ctx, id)
}

func (r *Repository) List(_ context.Context, f permit.Filter) ([]*permit.Permit, int, error) {
	all := r.filter(func(p *permit.Permit) bool {
		if f.Status != "" && string(p.Status()) != f.Status {
			return false
		}
		if f.CompanyName != "" && !strings.Contains(strings.ToLower(p.CompanyName), strings.ToLower(f.CompanyName)) {
			return false
		}
		return true
	}, f.SortOrder != "ASC")
	return all, len(all), nil
}

func (r *Repository) ListPendingForParty(_ context.Context, party approval.Party) ([]*permit.Permit, error) {
	return r.filter(func(p *permit.Permit) bool {
		st := p.Status()
		if st != approval.StatusPending && st != approval.StatusIncomplete {
			return false
		}
		s, ok := approval.SlotOf(p.Slots, party)
		return ok && s.Decision == approval.DecisionPending
	}, false), nil
}

func (r *Repository) ListByStatus(_ context.Context, status approval.Status) ([]*permit.Permit, error) {
	return r.filter(func(p *permit.Permit) bool { return p.Status() == status }, true), nil
}

func (r *Repository) Recent(_ context.Context, limit int) ([]*permit.Permit, error) {
	all := r.filter(func(*permit.Permit) bool { return true }, true)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *Repository) Counts(_ context.Context) (*permit.Counts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c permit.Counts
	for _, p := range r.permits {
		c.Add(p.Status(), 1)
	}
	return &c, nil
}

func (r *Repository) Update(_ context.Context, p *permit.Permit, replaceWorkers bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.permits[p.ID]
	if !ok {
		return permit.ErrNotFound
	}
	next := clone(p)
	next.Slots = stored.Slots
	if replaceWorkers {
		for i := range p.Workers {
			p.Workers[i].ID = uuid.NewString()
		}
		next.Workers = append([]permit.Worker(nil), p.Workers...)
	} else {
		next.Workers = stored.Workers
	}
	next.UpdatedAt = r.tick()
	p.UpdatedAt = next.UpdatedAt
	r.permits[p.ID] = next
	return nil
}

func (r *Repository) SaveSlot(_ context.Context, permitID string, slot approval.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.permits[permitID]
	if !ok {
		return permit.ErrNotFound
	}
	for i := range p.Slots {
		if p.Slots[i].Party == slot.Party {
			p.Slots[i] = slot
			p.UpdatedAt = r.tick()
			return nil
		}
	}
	return permit.ErrNotFound
}

func (r *Repository) SetNeedsRevision(_ context.Context, id string, flag bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.permits[id]
	if !ok {
		return permit.ErrNotFound
	}
	p.NeedsRevision = flag
	p.UpdatedAt = r.tick()
	return nil
}

func (r *Repository) filter(keep func(*permit.Permit) bool, newestFirst bool) []*permit.Permit {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*permit.Permit
	for _, p := range r.permits {
		if keep(p) {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func clone(p *permit.Permit) *permit.Permit {
	c := *p
	c.Slots = append([]approval.Slot(nil), p.Slots...)
	c.Workers = append([]permit.Worker(nil), p.Workers...)
	c.EquipmentList = append([]string(nil), p.EquipmentList...)
	return &c
}
