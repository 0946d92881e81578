package shop

import (
	"context"
	"strings"
)

type CreateRequest struct {
	Name     string
	Location string
	Size     float64
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Shop, error)
	GetByID(ctx context.Context, id string) (*Shop, error)
	List(ctx context.Context, filter Filter) ([]*Shop, int, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Shop, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if req.Size <= 0 {
		return nil, ErrInvalidSize
	}

	sh := &Shop{
		Name:     name,
		Location: strings.TrimSpace(req.Location),
		Size:     req.Size,
	}
	if err := s.repo.Create(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Shop, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Shop, int, error) {
	return s.repo.List(ctx, filter)
}
