package maintenance

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
	"github.com/nekogravitycat/mall-admin-backend/internal/db"
	"github.com/nekogravitycat/mall-admin-backend/internal/ledger"
	"github.com/nekogravitycat/mall-admin-backend/internal/notify"
	"github.com/nekogravitycat/mall-admin-backend/internal/status"
)

const (
	TopicRequested    = "maintenance.requested"
	TopicStepAppended = "maintenance.step_appended"
)

const stepCreated = "created"

// NotifiedDepartments receive every new maintenance request.
var NotifiedDepartments = []string{"operations", "facilities"}

type CreateRequest struct {
	// TenantID is ignored for tenants, who always file for themselves.
	TenantID      string
	Description   string
	Category      *string
	SuggestedTime *time.Time
	Workers       []string
	Note          *string
}

type StepRequest struct {
	Step string
	Note *string
	// AssignTo hands the request to a user along with the step.
	AssignTo *string
}

type Service interface {
	Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Request, error)
	GetByID(ctx context.Context, actor auth.Actor, id string) (*Request, error)
	// List returns every request to staff and only their own to tenants.
	List(ctx context.Context, actor auth.Actor, filter Filter) ([]*Request, int, error)
	// AppendStep records a workflow step and re-derives the status from it.
	AppendStep(ctx context.Context, actor auth.Actor, id string, req StepRequest) (*Request, *ledger.Event, error)
	Workflow(ctx context.Context, actor auth.Actor, id string) ([]*ledger.Event, error)
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

func isTenant(actor auth.Actor) bool {
	return actor.HasRole(auth.RoleTenant)
}

func canView(actor auth.Actor, m *Request) bool {
	return !isTenant(actor) || m.TenantID == actor.ID
}

func (s *service) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Request, error) {
	if err := auth.Authorize(actor, auth.PermCreateMaintenance); err != nil {
		return nil, err
	}
	tenant := strings.TrimSpace(req.TenantID)
	if isTenant(actor) {
		tenant = actor.ID
	}
	if tenant == "" {
		return nil, ErrTenantRequired
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, ErrDescriptionRequired
	}

	m := &Request{
		TenantID:      tenant,
		Description:   desc,
		Category:      blankToNil(req.Category),
		SuggestedTime: utc(req.SuggestedTime),
		Workers:       cleanNames(req.Workers),
		Status:        StatusPending,
		CreatedBy:     actor.ID,
	}

	note := req.Note
	if note == nil {
		n := "maintenance requested"
		note = &n
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, m); err != nil {
			return err
		}
		ev, err := s.ledger.Append(ctx, ledger.AppendRequest{
			OwnerType: ledger.OwnerMaintenance,
			OwnerID:   m.ID,
			Step:      stepCreated,
			ActorID:   &actor.ID,
			Note:      note,
		})
		if err != nil {
			return err
		}
		changed, err := s.derive(m, ev)
		if err != nil || !changed {
			return err
		}
		return s.repo.Update(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	attrs := map[string]string{
		"tenant_id":   m.TenantID,
		"description": m.Description,
		"departments": strings.Join(NotifiedDepartments, ","),
	}
	if m.Category != nil {
		attrs["category"] = *m.Category
	}
	if m.SuggestedTime != nil {
		attrs["suggested_time"] = m.SuggestedTime.Format(time.RFC3339)
	}
	s.notifier.Notify(notify.Event{
		Topic:      TopicRequested,
		OwnerType:  string(ledger.OwnerMaintenance),
		OwnerID:    m.ID,
		Step:       stepCreated,
		Status:     string(m.Status),
		ActorID:    actor.ID,
		Attributes: attrs,
	})
	return m, nil
}

// derive moves m to the status ev maps to and reports whether it changed.
func (s *service) derive(m *Request, ev *ledger.Event) (bool, error) {
	derived, err := s.deriver.FromEvent(ev)
	if err != nil {
		return false, err
	}
	next := Status(derived)
	if next == m.Status {
		return false, nil
	}
	m.Status = next
	m.ResolvedAt = nil
	if next == StatusResolved {
		at := ev.OccurredAt
		m.ResolvedAt = &at
	}
	return true, nil
}

func (s *service) GetByID(ctx context.Context, actor auth.Actor, id string) (*Request, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, m) {
		return nil, ErrNotOwnRequest
	}
	return m, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter Filter) ([]*Request, int, error) {
	if filter.Status != "" {
		if _, err := ParseStatus(filter.Status); err != nil {
			return nil, 0, err
		}
	}
	if isTenant(actor) {
		filter.TenantID = actor.ID
	}
	return s.repo.List(ctx, filter)
}

func (s *service) AppendStep(ctx context.Context, actor auth.Actor, id string, req StepRequest) (*Request, *ledger.Event, error) {
	if err := auth.Authorize(actor, auth.PermHandleMaintenance); err != nil {
		return nil, nil, err
	}

	var (
		updated  *Request
		ev       *ledger.Event
		previous Status
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous = m.Status

		ev, err = s.ledger.Append(ctx, ledger.AppendRequest{
			OwnerType: ledger.OwnerMaintenance,
			OwnerID:   m.ID,
			Step:      req.Step,
			ActorID:   &actor.ID,
			Note:      req.Note,
		})
		if err != nil {
			return err
		}

		changed, err := s.derive(m, ev)
		if err != nil {
			return err
		}
		if req.AssignTo != nil {
			m.AssignedTo = blankToNil(req.AssignTo)
			changed = true
		}
		if changed {
			if err := s.repo.Update(ctx, m); err != nil {
				return err
			}
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	attrs := map[string]string{
		"tenant_id":       updated.TenantID,
		"previous_status": string(previous),
	}
	if updated.AssignedTo != nil {
		attrs["assigned_to"] = *updated.AssignedTo
	}
	s.notifier.Notify(notify.Event{
		Topic:      TopicStepAppended,
		OwnerType:  string(ledger.OwnerMaintenance),
		OwnerID:    updated.ID,
		Step:       ev.Step,
		Status:     string(updated.Status),
		ActorID:    actor.ID,
		Attributes: attrs,
	})
	return updated, ev, nil
}

func (s *service) Workflow(ctx context.Context, actor auth.Actor, id string) ([]*ledger.Event, error) {
	if _, err := s.GetByID(ctx, actor, id); err != nil {
		return nil, err
	}
	events, err := s.ledger.List(ctx, ledger.OwnerMaintenance, id)
	if errors.Is(err, ledger.ErrUnknownOwner) {
		return nil, ErrNotFound
	}
	return events, err
}

func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Microsecond)
	return &v
}
