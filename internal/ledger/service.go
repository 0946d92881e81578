// Package ledger is the append-only workflow history shared by contracts,
// permits and tasks.
package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/mall-admin-backend/internal/db"
)

// AppendRequest describes one workflow step.
type AppendRequest struct {
	OwnerType OwnerType
	OwnerID   string
	Step      string
	ActorID   *string
	Note      *string
}

type Service interface {
	// Append records a step. When ctx carries a transaction the event commits
	// or rolls back with it.
	Append(ctx context.Context, req AppendRequest) (*Event, error)
	// List returns the owner's events ordered by (OccurredAt, Seq).
	List(ctx context.Context, ownerType OwnerType, ownerID string) ([]*Event, error)
}

type service struct {
	repo Repository
	tx   db.TxManager
	now  func() time.Time
}

// NewService creates a ledger service. now is the clock used to stamp events.
func NewService(repo Repository, tx db.TxManager, now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, tx: tx, now: now}
}

func (s *service) Append(ctx context.Context, req AppendRequest) (*Event, error) {
	if _, err := ParseOwnerType(string(req.OwnerType)); err != nil {
		return nil, err
	}
	step := strings.TrimSpace(req.Step)
	if step == "" {
		return nil, ErrStepRequired
	}
	if _, err := uuid.Parse(req.OwnerID); err != nil {
		return nil, ErrUnknownOwner
	}

	var ev *Event
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.repo.OwnerExists(ctx, req.OwnerType, req.OwnerID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUnknownOwner
		}

		// Postgres keeps microseconds; truncating keeps stored and returned values equal.
		ts := s.now().UTC().Truncate(time.Microsecond)
		latest, err := s.repo.LatestOccurredAt(ctx, req.OwnerType, req.OwnerID)
		if err != nil {
			return err
		}
		if latest != nil && ts.Before(*latest) {
			ts = latest.UTC()
		}

		ev = &Event{
			OwnerType:  req.OwnerType,
			OwnerID:    req.OwnerID,
			Step:       step,
			ActorID:    req.ActorID,
			Note:       req.Note,
			OccurredAt: ts,
		}
		return s.repo.Insert(ctx, ev)
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func (s *service) List(ctx context.Context, ownerType OwnerType, ownerID string) ([]*Event, error) {
	if _, err := ParseOwnerType(string(ownerType)); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(ownerID); err != nil {
		return nil, ErrUnknownOwner
	}

	exists, err := s.repo.OwnerExists(ctx, ownerType, ownerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUnknownOwner
	}
	return s.repo.List(ctx, ownerType, ownerID)
}
