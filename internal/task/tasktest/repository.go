// Package tasktest provides an in-memory task.Repository.
package tasktest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/mall-admin-backend/internal/task"
)

type Repository struct {
	mu    sync.Mutex
	tasks map[string]task.Task
	clock time.Time

	// FailCreateFor makes Create fail for tasks of that department.
	FailCreateFor string
}

func New() *Repository {
	return &Repository{
		tasks: make(map[string]task.Task),
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Exists reports whether a task with id is stored.
func (r *Repository) Exists(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[id]
	return ok
}

// Len returns the number of stored tasks.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Snapshot implements dbtest.Snapshotter.
func (r *Repository) Snapshot() func() {
	r.mu.Lock()
	saved := make(map[string]task.Task, len(r.tasks))
	for k, v := range r.tasks {
		saved[k] = v
	}
	clock := r.clock
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.tasks = saved
		r.clock = clock
		r.mu.Unlock()
	}
}

func (r *Repository) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *Repository) Create(_ context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreateFor != "" && t.DepartmentID == r.FailCreateFor {
		return ErrCreate
	}
	t.ID = uuid.NewString()
	t.CreatedAt = r.tick()
	t.UpdatedAt = t.CreatedAt
	r.tasks[t.ID] = *t
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, task.ErrNotFound
	}
	return &t, nil
}

func (r *Repository) GetForUpdate(ctx context.Context, id string) (*task.Task, error) {
	return r.GetByID(ctx, id)
}

func (r *Repository) List(_ context.Context, f task.Filter) ([]*task.Task, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*task.Task
	for _, t := range r.tasks {
		if f.DepartmentID != "" && t.DepartmentID != f.DepartmentID {
			continue
		}
		if f.AssignedTo != "" && !assigned(t, f.AssignedTo) {
			continue
		}
		if f.Scope != nil && t.DepartmentID != f.Scope.Department && !assigned(t, f.Scope.UserID) {
			continue
		}
		if f.Status != "" && string(t.Status) != f.Status {
			continue
		}
		tt := t
		all = append(all, &tt)
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
	start := (f.Page - 1) * f.PageSize
	if start > total {
		start = total
	}
	end := min(start+f.PageSize, total)
	return all[start:end], total, nil
}

func (r *Repository) Update(_ context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; !ok {
		return task.ErrNotFound
	}
	t.UpdatedAt = r.tick()
	r.tasks[t.ID] = *t
	return nil
}

func assigned(t task.Task, userID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// ErrCreate is returned by Create for FailCreateFor's department.
var ErrCreate = errors.New("tasktest: create failed")
