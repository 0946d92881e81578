// Package shoptest provides an in-memory shop.Repository.
package shoptest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/mall-admin-backend/internal/shop"
)

type Repository struct {
	mu    sync.Mutex
	shops map[string]shop.Shop
}

func New() *Repository {
	return &Repository{shops: make(map[string]shop.Shop)}
}

// Seed stores sh as-is, assigning an ID when empty, and returns the ID.
func (r *Repository) Seed(sh shop.Shop) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sh.ID == "" {
		sh.ID = uuid.NewString()
	}
	r.shops[sh.ID] = sh
	return sh.ID
}

// Exists reports whether id is stored.
func (r *Repository) Exists(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.shops[id]
	return ok
}

func (r *Repository) Create(_ context.Context, sh *shop.Shop) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.shops {
		if existing.Name == sh.Name {
			return shop.ErrNameTaken
		}
	}
	sh.ID = uuid.NewString()
	sh.CreatedAt = time.Now().UTC()
	r.shops[sh.ID] = *sh
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*shop.Shop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sh, ok := r.shops[id]
	if !ok {
		return nil, shop.ErrNotFound
	}
	return &sh, nil
}

func (r *Repository) List(_ context.Context, filter shop.Filter) ([]*shop.Shop, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*shop.Shop
	for _, sh := range r.shops {
		if filter.Keyword != "" && !strings.Contains(strings.ToLower(sh.Name), strings.ToLower(filter.Keyword)) {
			continue
		}
		c := sh
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			if filter.SortOrder == "DESC" {
				return all[i].CreatedAt.After(all[j].CreatedAt)
			}
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].Name < all[j].Name
	})

	total := len(all)
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	start := (page - 1) * size
	if start >= total {
		return nil, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}
