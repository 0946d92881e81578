// Package maintenancetest provides an in-memory maintenance.Repository.
package maintenancetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/mall-admin-backend/internal/maintenance"
)

type Repository struct {
	mu       sync.Mutex
	requests map[string]maintenance.Request
	clock    time.Time
	updates  int
}

func New() *Repository {
	return &Repository{
		requests: make(map[string]maintenance.Request),
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Exists reports whether a request with id is stored.
func (r *Repository) Exists(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.requests[id]
	return ok
}

// Updates returns how many times Update succeeded.
func (r *Repository) Updates() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates
}

// Snapshot implements dbtest.Snapshotter.
func (r *Repository) Snapshot() func() {
	r.mu.Lock()
	saved := make(map[string]maintenance.Request, len(r.requests))
	for k, v := range r.requests {
		saved[k] = v
	}
	clock, updates := r.clock, r.updates
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.requests = saved
		r.clock, r.updates = clock, updates
		r.mu.Unlock()
	}
}

func (r *Repository) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *Repository) Create(_ context.Context, m *maintenance.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = uuid.NewString()
	m.CreatedAt = r.tick()
	m.UpdatedAt = m.CreatedAt
	r.requests[m.ID] = clone(*m)
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*maintenance.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.requests[id]
	if !ok {
		return nil, maintenance.ErrNotFound
	}
	m = clone(m)
	return &m, nil
}

func (r *Repository) GetForUpdate(ctx context.Context, id string) (*maintenance.Request, error) {
	return r.GetByID(ctx, id)
}

func (r *Repository) List(_ context.Context, f maintenance.Filter) ([]*maintenance.Request, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*maintenance.Request
	for _, m := range r.requests {
		if f.TenantID != "" && m.TenantID != f.TenantID {
			continue
		}
		if f.Category != "" && (m.Category == nil || *m.Category != f.Category) {
			continue
		}
		if f.Status != "" && string(m.Status) != f.Status {
			continue
		}
		mm := clone(m)
		all = append(all, &mm)
	}
	sort.Slice(all, func(i, j int) bool {
		if f.SortOrder == "ASC" {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := len(all)

	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	start := min((f.Page-1)*f.PageSize, total)
	end := min(start+f.PageSize, total)
	return all[start:end], total, nil
}

func (r *Repository) Update(_ context.Context, m *maintenance.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[m.ID]; !ok {
		return maintenance.ErrNotFound
	}
	m.UpdatedAt = r.tick()
	r.requests[m.ID] = clone(*m)
	r.updates++
	return nil
}

func clone(m maintenance.Request) maintenance.Request {
	m.Workers = append([]string(nil), m.Workers...)
	return m
}
