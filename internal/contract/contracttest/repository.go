// Package contracttest provides an in-memory contract.Repository.
package contracttest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/mall-admin-backend/internal/contract"
	"github.com/nekogravitycat/mall-admin-backend/internal/interval"
)

// Repository keeps contracts in memory. Locks are no-ops: tests pair it with
// dbtest.TxManager, which already serializes units of work.
type Repository struct {
	mu        sync.Mutex
	contracts map[string]contract.Contract
	shops     func(id string) bool
}

// New returns a repository whose LockShop accepts the shops shopExists knows.
func New(shopExists func(id string) bool) *Repository {
	return &Repository{contracts: make(map[string]contract.Contract), shops: shopExists}
}

// Seed stores c directly, bypassing every check, and returns its ID.
func (r *Repository) Seed(c contract.Contract) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	r.contracts[c.ID] = c
	return c.ID
}

// Exists reports whether a contract with id is stored.
func (r *Repository) Exists(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.contracts[id]
	return ok
}

// All returns every stored contract.
func (r *Repository) All() []contract.Contract {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]contract.Contract, 0, len(r.contracts))
	for _, c := range r.contracts {
		out = append(out, c)
	}
	return out
}

// Snapshot implements dbtest.Snapshotter.
func (r *Repository) Snapshot() func() {
	r.mu.Lock()
	saved := make(map[string]contract.Contract, len(r.contracts))
	for k, v := range r.contracts {
		saved[k] = v
	}
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.contracts = saved
		r.mu.Unlock()
	}
}

func (r *Repository) LockShop(_ context.Context, shopID string) error {
	if r.shops == nil || !r.shops(shopID) {
		return contract.ErrShopNotFound
	}
	return nil
}

func (r *Repository) ListOccupying(_ context.Context, shopID string) ([]interval.Occupant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []interval.Occupant
	for _, c := range r.contracts {
		if c.ShopID == shopID && c.Status.Occupying() {
			out = append(out, interval.Occupant{OwnerID: c.ID, Interval: c.Interval()})
		}
	}
	return out, nil
}

func (r *Repository) Create(_ context.Context, c *contract.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now
	r.contracts[c.ID] = *c
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*contract.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[id]
	if !ok {
		return nil, contract.ErrNotFound
	}
	return &c, nil
}

func (r *Repository) GetForUpdate(ctx context.Context, id string) (*contract.Contract, error) {
	return r.GetByID(ctx, id)
}

func (r *Repository) List(_ context.Context, f contract.Filter) ([]*contract.Contract, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*contract.Contract
	for _, c := range r.contracts {
		if f.ShopID != "" && c.ShopID != f.ShopID {
			continue
		}
		if f.TenantID != "" && c.TenantID != f.TenantID {
			continue
		}
		if f.Status != "" && string(c.Status) != f.Status {
			continue
		}
		if f.ActiveAt != nil && (f.ActiveAt.Before(c.StartTime) || !f.ActiveAt.Before(c.EndTime)) {
			continue
		}
		cc := c
		all = append(all, &cc)
	}
	sort.Slice(all, func(i, j int) bool {
		if f.SortOrder == "ASC" {
			return all[i].StartTime.Before(all[j].StartTime)
		}
		return all[i].StartTime.After(all[j].StartTime)
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

func (r *Repository) Update(_ context.Context, c *contract.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contracts[c.ID]; !ok {
		return contract.ErrNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	r.contracts[c.ID] = *c
	return nil
}
