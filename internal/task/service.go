package task

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
	TopicCreated      = "task.created"
	TopicStepAppended = "task.step_appended"
)

const stepCreated = "created"

type CreateRequest struct {
	Title        string
	Description  *string
	AssignedTo   *string
	DepartmentID string
	DueDate      *time.Time
	Note         *string
}

// DepartmentsRequest creates one task per department.
type DepartmentsRequest struct {
	Title         string
	Description   *string
	DepartmentIDs []string
	DueDate       *time.Time
}

// UpdateRequest changes descriptive fields. Status is only moved by steps.
type UpdateRequest struct {
	Title        *string
	Description  *string
	AssignedTo   *string
	DepartmentID *string
	DueDate      *time.Time
}

type Service interface {
	Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Task, error)
	CreateForDepartments(ctx context.Context, actor auth.Actor, req DepartmentsRequest) ([]*Task, error)
	GetByID(ctx context.Context, actor auth.Actor, id string) (*Task, error)
	// List returns all tasks to management and the actor's own department's
	// tasks to everyone else.
	List(ctx context.Context, actor auth.Actor, filter Filter) ([]*Task, int, error)
	Update(ctx context.Context, actor auth.Actor, id string, req UpdateRequest) (*Task, error)
	// AppendStep records a workflow step and re-derives the status from it.
	AppendStep(ctx context.Context, actor auth.Actor, id string, step string, note *string) (*Task, *ledger.Event, error)
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

// canView reports whether actor may see t: management, the owning
// department, or the assignee.
func canView(actor auth.Actor, t *Task) bool {
	return actor.InDepartment(t.DepartmentID) || t.assignedTo(actor.ID)
}

func (s *service) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Task, error) {
	if err := auth.Authorize(actor, auth.PermCreateTask); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	dept := strings.TrimSpace(req.DepartmentID)
	if dept == "" {
		return nil, ErrDepartmentRequired
	}

	t := &Task{
		Title:        title,
		Description:  req.Description,
		CreatedBy:    actor.ID,
		AssignedTo:   blankToNil(req.AssignedTo),
		DepartmentID: dept,
		DueDate:      utc(req.DueDate),
	}

	note := req.Note
	if note == nil {
		n := "task created"
		note = &n
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.create(ctx, actor, t, note)
	})
	if err != nil {
		return nil, err
	}

	s.notifyCreated(actor, t)
	return t, nil
}

func (s *service) CreateForDepartments(ctx context.Context, actor auth.Actor, req DepartmentsRequest) ([]*Task, error) {
	if err := auth.Authorize(actor, auth.PermCreateDeptTasks); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	seen := make(map[string]struct{}, len(req.DepartmentIDs))
	var depts []string
	for _, d := range req.DepartmentIDs {
		d = strings.TrimSpace(d)
		if d == "" {
			return nil, ErrDepartmentRequired
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		depts = append(depts, d)
	}
	if len(depts) == 0 {
		return nil, ErrDepartmentRequired
	}

	note := "task created for department"
	tasks := make([]*Task, len(depts))
	// One transaction for the batch: either every department gets its task or none does.
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for i, d := range depts {
			t := &Task{
				Title:        title,
				Description:  req.Description,
				CreatedBy:    actor.ID,
				DepartmentID: d,
				DueDate:      utc(req.DueDate),
			}
			if err := s.create(ctx, actor, t, &note); err != nil {
				return err
			}
			tasks[i] = t
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, t := range tasks {
		s.notifyCreated(actor, t)
	}
	return tasks, nil
}

// create inserts t and its "created" event. It must run inside a transaction.
func (s *service) create(ctx context.Context, actor auth.Actor, t *Task, note *string) error {
	t.Status = StatusRed
	if err := s.repo.Create(ctx, t); err != nil {
		return err
	}
	ev, err := s.ledger.Append(ctx, ledger.AppendRequest{
		OwnerType: ledger.OwnerTask,
		OwnerID:   t.ID,
		Step:      stepCreated,
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
	if Status(derived) != t.Status {
		t.Status = Status(derived)
		return s.repo.Update(ctx, t)
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, actor auth.Actor, id string) (*Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, t) {
		return nil, ErrNotInDepartment
	}
	return t, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter Filter) ([]*Task, int, error) {
	if filter.Status != "" {
		if _, err := ParseStatus(filter.Status); err != nil {
			return nil, 0, err
		}
	}
	if !actor.IsManagement() {
		// Same visibility as canView: the actor's department plus their assignments.
		switch {
		case filter.DepartmentID == "" && actor.Department != "":
			filter.Scope = &Scope{Department: actor.Department, UserID: actor.ID}
		case filter.DepartmentID == "" || filter.DepartmentID != actor.Department:
			filter.AssignedTo = actor.ID
		}
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id string, req UpdateRequest) (*Task, error) {
	if err := auth.Authorize(actor, auth.PermUpdateTask); err != nil {
		return nil, err
	}
	if req.Title == nil && req.Description == nil && req.AssignedTo == nil && req.DepartmentID == nil && req.DueDate == nil {
		return nil, ErrNothingToApply
	}

	var updated *Task
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return ErrTitleRequired
			}
			t.Title = title
		}
		if req.Description != nil {
			t.Description = req.Description
		}
		if req.AssignedTo != nil {
			t.AssignedTo = blankToNil(req.AssignedTo)
		}
		if req.DepartmentID != nil {
			dept := strings.TrimSpace(*req.DepartmentID)
			if dept == "" {
				return ErrDepartmentRequired
			}
			t.DepartmentID = dept
		}
		if req.DueDate != nil {
			t.DueDate = utc(req.DueDate)
		}

		if err := s.repo.Update(ctx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) AppendStep(ctx context.Context, actor auth.Actor, id string, step string, note *string) (*Task, *ledger.Event, error) {
	var (
		updated  *Task
		ev       *ledger.Event
		previous Status
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !canView(actor, t) {
			return ErrNotInDepartment
		}
		previous = t.Status

		ev, err = s.ledger.Append(ctx, ledger.AppendRequest{
			OwnerType: ledger.OwnerTask,
			OwnerID:   t.ID,
			Step:      step,
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
		t.Status = Status(derived)

		if err := s.repo.Update(ctx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.notifier.Notify(notify.Event{
		Topic:     TopicStepAppended,
		OwnerType: string(ledger.OwnerTask),
		OwnerID:   updated.ID,
		Step:      ev.Step,
		Status:    string(updated.Status),
		ActorID:   actor.ID,
		Attributes: map[string]string{
			"department_id":   updated.DepartmentID,
			"previous_status": string(previous),
		},
	})
	return updated, ev, nil
}

func (s *service) Workflow(ctx context.Context, actor auth.Actor, id string) ([]*ledger.Event, error) {
	if _, err := s.GetByID(ctx, actor, id); err != nil {
		return nil, err
	}
	events, err := s.ledger.List(ctx, ledger.OwnerTask, id)
	if errors.Is(err, ledger.ErrUnknownOwner) {
		return nil, ErrNotFound
	}
	return events, err
}

func (s *service) notifyCreated(actor auth.Actor, t *Task) {
	attrs := map[string]string{
		"department_id": t.DepartmentID,
		"title":         t.Title,
	}
	if t.AssignedTo != nil {
		attrs["assigned_to"] = *t.AssignedTo
	}
	s.notifier.Notify(notify.Event{
		Topic:      TopicCreated,
		OwnerType:  string(ledger.OwnerTask),
		OwnerID:    t.ID,
		Step:       stepCreated,
		Status:     string(t.Status),
		ActorID:    actor.ID,
		Attributes: attrs,
	})
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
	v := t.UTC()
	return &v
}
