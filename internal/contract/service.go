package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
	"github.com/nekogravitycat/mall-admin-backend/internal/db"
	"github.com/nekogravitycat/mall-admin-backend/internal/interval"
	"github.com/nekogravitycat/mall-admin-backend/internal/ledger"
	"github.com/nekogravitycat/mall-admin-backend/internal/notify"
	"github.com/nekogravitycat/mall-admin-backend/internal/status"
)

const (
	TopicCreated       = "contract.created"
	TopicStatusChanged = "contract.status_changed"
)

type CreateRequest struct {
	ShopID    string
	TenantID  string
	StartTime time.Time
	EndTime   time.Time
	Amount    float64
	Note      *string
}

// UpdateRequest changes the period and/or amount. Nil fields keep their value.
type UpdateRequest struct {
	StartTime *time.Time
	EndTime   *time.Time
	Amount    *float64
}

type Service interface {
	Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Contract, error)
	Update(ctx context.Context, actor auth.Actor, id string, req UpdateRequest) (*Contract, error)
	SetStatus(ctx context.Context, actor auth.Actor, id string, newStatus string, note *string) (*Contract, error)
	GetByID(ctx context.Context, id string) (*Contract, error)
	List(ctx context.Context, filter Filter) ([]*Contract, int, error)
	Workflow(ctx context.Context, id string) ([]*ledger.Event, error)
}

type service struct {
	repo     Repository
	ledger   ledger.Service
	deriver  *status.Deriver
	tx       db.TxManager
	notifier notify.Notifier
}

func NewService(repo Repository, ledgerService ledger.Service, deriver *status.Deriver, tx db.TxManager, notifier notify.Notifier) Service {
	return &service{
		repo:     repo,
		ledger:   ledgerService,
		deriver:  deriver,
		tx:       tx,
		notifier: notifier,
	}
}

// newPeriod normalizes a contract period to UTC at the database's microsecond
// precision, so the conflict check sees the values that will be stored.
func newPeriod(start, end time.Time) (interval.Interval, error) {
	return interval.New(start.UTC().Truncate(time.Microsecond), end.UTC().Truncate(time.Microsecond))
}

// checkAvailable fails with ErrTimeConflict if proposed overlaps an occupying
// contract of the shop other than excludeID. The caller must hold LockShop.
func (s *service) checkAvailable(ctx context.Context, shopID string, proposed interval.Interval, excludeID string) error {
	occupants, err := s.repo.ListOccupying(ctx, shopID)
	if err != nil {
		return err
	}
	conflict, err := interval.CheckConflict(occupants, proposed, excludeID)
	if err != nil {
		return err
	}
	if conflict {
		return ErrTimeConflict
	}
	return nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Contract, error) {
	if err := auth.Authorize(actor, auth.PermManageContracts); err != nil {
		return nil, err
	}
	tenant := strings.TrimSpace(req.TenantID)
	if tenant == "" {
		return nil, ErrTenantRequired
	}
	if req.Amount < 0 {
		return nil, ErrInvalidAmount
	}
	period, err := newPeriod(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	c := &Contract{
		ShopID:    req.ShopID,
		TenantID:  tenant,
		StartTime: period.Start,
		EndTime:   period.End,
		Amount:    req.Amount,
		Status:    StatusDraft,
	}

	note := req.Note
	if note == nil {
		n := "contract drafted"
		note = &n
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockShop(ctx, c.ShopID); err != nil {
			return err
		}
		if err := s.checkAvailable(ctx, c.ShopID, period, ""); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, c); err != nil {
			return err
		}
		_, err := s.ledger.Append(ctx, ledger.AppendRequest{
			OwnerType: ledger.OwnerContract,
			OwnerID:   c.ID,
			Step:      string(StatusDraft),
			ActorID:   &actor.ID,
			Note:      note,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(notify.Event{
		Topic:     TopicCreated,
		OwnerType: string(ledger.OwnerContract),
		OwnerID:   c.ID,
		Status:    string(c.Status),
		ActorID:   actor.ID,
		Attributes: map[string]string{
			"shop_id":   c.ShopID,
			"tenant_id": c.TenantID,
		},
	})
	return c, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id string, req UpdateRequest) (*Contract, error) {
	if err := auth.Authorize(actor, auth.PermManageContracts); err != nil {
		return nil, err
	}
	if req.StartTime == nil && req.EndTime == nil && req.Amount == nil {
		return nil, ErrNothingToApply
	}
	if req.Amount != nil && *req.Amount < 0 {
		return nil, ErrInvalidAmount
	}

	// The shop is fixed for the contract's lifetime, so it can be read before locking.
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var updated *Contract
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockShop(ctx, current.ShopID); err != nil {
			return err
		}
		c, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if req.StartTime != nil || req.EndTime != nil {
			start, end := c.StartTime, c.EndTime
			if req.StartTime != nil {
				start = *req.StartTime
			}
			if req.EndTime != nil {
				end = *req.EndTime
			}
			period, err := newPeriod(start, end)
			if err != nil {
				return err
			}
			if err := s.checkAvailable(ctx, c.ShopID, period, c.ID); err != nil {
				return err
			}
			c.StartTime, c.EndTime = period.Start, period.End
		}
		if req.Amount != nil {
			c.Amount = *req.Amount
		}

		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) SetStatus(ctx context.Context, actor auth.Actor, id string, newStatus string, note *string) (*Contract, error) {
	if err := auth.Authorize(actor, auth.PermManageContracts); err != nil {
		return nil, err
	}
	target, err := ParseStatus(newStatus)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if note == nil {
		n := fmt.Sprintf("status changed to %s", target)
		note = &n
	}

	var updated *Contract
	var previous Status
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockShop(ctx, current.ShopID); err != nil {
			return err
		}
		c, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous = c.Status

		if target.Occupying() && !c.Status.Occupying() {
			if err := s.checkAvailable(ctx, c.ShopID, c.Interval(), c.ID); err != nil {
				return err
			}
		}

		ev, err := s.ledger.Append(ctx, ledger.AppendRequest{
			OwnerType: ledger.OwnerContract,
			OwnerID:   c.ID,
			Step:      string(target),
			ActorID:   &actor.ID,
			Note:      note,
		})
		if err != nil {
			return err
		}
		derived, err := s.deriver.FromEvent(ev)
		if err != nil {
			return err
		}
		c.Status = Status(derived)

		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(notify.Event{
		Topic:     TopicStatusChanged,
		OwnerType: string(ledger.OwnerContract),
		OwnerID:   updated.ID,
		Step:      string(target),
		Status:    string(updated.Status),
		ActorID:   actor.ID,
		Attributes: map[string]string{
			"shop_id":         updated.ShopID,
			"previous_status": string(previous),
		},
	})
	return updated, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Contract, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Contract, int, error) {
	if filter.Status != "" {
		if _, err := ParseStatus(filter.Status); err != nil {
			return nil, 0, err
		}
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Workflow(ctx context.Context, id string) ([]*ledger.Event, error) {
	events, err := s.ledger.List(ctx, ledger.OwnerContract, id)
	if errors.Is(err, ledger.ErrUnknownOwner) {
		return nil, ErrNotFound
	}
	return events, err
}
