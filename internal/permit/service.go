package permit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nekogravitycat/mall-admin-backend/internal/approval"
	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
	"github.com/nekogravitycat/mall-admin-backend/internal/db"
	"github.com/nekogravitycat/mall-admin-backend/internal/interval"
	"github.com/nekogravitycat/mall-admin-backend/internal/ledger"
	"github.com/nekogravitycat/mall-admin-backend/internal/notify"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/apperror"
)

const (
	TopicCreated   = "permit.created"
	TopicDecided   = "permit.decided"
	TopicFinalized = "permit.finalized"
)

const (
	stepCreated    = "created"
	stepEdited     = "edited"
	stepIncomplete = "marked_incomplete"
	stepPending    = "marked_pending"
)

// dashboardRecent is how many of the newest requests the dashboard shows.
const dashboardRecent = 10

// partyApprovers maps each approval party to the role that decides for it.
// Superadmins may decide for any party.
var partyApprovers = map[approval.Party]auth.Role{
	approval.PartyFacilities: auth.RoleFacilitiesManager,
	approval.PartyMarketing:  auth.RoleMarketingManager,
	approval.PartyOperations: auth.RoleOperationsManager,
}

func canDecide(actor auth.Actor, party approval.Party) bool {
	if actor.HasRole(auth.RoleSuperAdmin) {
		return true
	}
	role, ok := partyApprovers[party]
	return ok && actor.Role == role
}

type CreateRequest struct {
	Details
	Workers []Worker
}

// EditRequest is a partial update. Nil fields keep their value; a non-nil
// Workers replaces the whole worker list.
type EditRequest struct {
	CompanyName    *string
	JobLocation    *string
	OnsiteInCharge *string
	ContactNo      *string
	Ref            *string
	RequesterType  *RequesterType
	JobDateFrom    *time.Time
	JobDateTo      *time.Time
	JobTimeFrom    *string
	JobTimeTo      *string
	JobType        *string
	JobDescription *string
	RequestedBy    *string
	RiskAssessment *string
	SafetyMeasures *string
	EquipmentList  *[]string
	NeedPowerCut   *bool
	NeedMallStaff  *bool
	ExtraNotes     *string
	Workers        *[]Worker
	Note           *string
}

type Service interface {
	Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Permit, error)
	GetByID(ctx context.Context, id string) (*Permit, error)
	List(ctx context.Context, filter Filter) ([]*Permit, int, error)
	// ListPending returns the requests still waiting on party's decision.
	ListPending(ctx context.Context, party string) ([]*Permit, error)
	Approve(ctx context.Context, actor auth.Actor, id string, party string, note *string) (*Permit, error)
	Reject(ctx context.Context, actor auth.Actor, id string, party string, note *string) (*Permit, error)
	Edit(ctx context.Context, actor auth.Actor, id string, req EditRequest) (*Permit, error)
	// SetStatus toggles between pending and incomplete while the request is undecided.
	SetStatus(ctx context.Context, actor auth.Actor, id string, status string, note *string) (*Permit, error)
	Dashboard(ctx context.Context) (*Dashboard, error)
	Workflow(ctx context.Context, id string) ([]*ledger.Event, error)
}

type service struct {
	repo     Repository
	gate     *approval.Gate
	ledger   ledger.Service
	tx       db.TxManager
	notifier notify.Notifier
	now      func() time.Time
}

func NewService(repo Repository, gate *approval.Gate, ledgerService ledger.Service, tx db.TxManager, notifier notify.Notifier, now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     repo,
		gate:     gate,
		ledger:   ledgerService,
		tx:       tx,
		notifier: notifier,
		now:      now,
	}
}

func (s *service) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Permit, error) {
	if err := auth.Authorize(actor, auth.PermCreatePermit); err != nil {
		return nil, err
	}

	p := &Permit{
		Details: normalizeDetails(req.Details),
		Workers: normalizeWorkers(req.Workers),
		Slots:   s.gate.NewSlots(),
	}
	if err := validateDetails(&p.Details); err != nil {
		return nil, err
	}
	if err := validateWorkers(p.Workers); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		return s.appendStep(ctx, p.ID, stepCreated, actor, nil)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(notify.Event{
		Topic:     TopicCreated,
		OwnerType: string(ledger.OwnerPermit),
		OwnerID:   p.ID,
		Status:    string(p.Status()),
		ActorID:   actor.ID,
		Attributes: map[string]string{
			"company_name": p.CompanyName,
			"job_location": p.JobLocation,
		},
	})
	return p, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Permit, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Slots = s.gate.Order(p.Slots)
	return p, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Permit, int, error) {
	if filter.Status != "" {
		switch approval.Status(filter.Status) {
		case approval.StatusPending, approval.StatusIncomplete, approval.StatusApproved, approval.StatusRejected:
		default:
			return nil, 0, apperror.Validation("invalid permit status filter")
		}
	}
	permits, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	s.order(permits)
	return permits, total, nil
}

func (s *service) ListPending(ctx context.Context, party string) ([]*Permit, error) {
	pt, err := s.gate.ParseParty(party)
	if err != nil {
		return nil, err
	}
	permits, err := s.repo.ListPendingForParty(ctx, pt)
	if err != nil {
		return nil, err
	}
	s.order(permits)
	return permits, nil
}

func (s *service) Approve(ctx context.Context, actor auth.Actor, id string, party string, note *string) (*Permit, error) {
	return s.decide(ctx, actor, id, party, approval.DecisionApproved, note)
}

func (s *service) Reject(ctx context.Context, actor auth.Actor, id string, party string, note *string) (*Permit, error) {
	return s.decide(ctx, actor, id, party, approval.DecisionRejected, note)
}

func (s *service) decide(ctx context.Context, actor auth.Actor, id string, rawParty string, d approval.Decision, note *string) (*Permit, error) {
	party, err := s.gate.ParseParty(rawParty)
	if err != nil {
		return nil, err
	}
	if !canDecide(actor, party) {
		return nil, ErrNotPartyApprover
	}

	var (
		p       *Permit
		changed bool
		before  approval.Status
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		before = p.Status()

		at := s.now().UTC().Truncate(time.Microsecond)
		var next []approval.Slot
		switch d {
		case approval.DecisionApproved:
			next, _, err = s.gate.Approve(p.Slots, party, actor.ID, at)
		default:
			next, _, err = s.gate.Reject(p.Slots, party, actor.ID, at)
		}
		if err != nil {
			return err
		}

		prev, _ := approval.SlotOf(p.Slots, party)
		slot, _ := approval.SlotOf(next, party)
		p.Slots = next
		if prev.Decision == slot.Decision {
			return nil
		}
		changed = true

		if err := s.repo.SaveSlot(ctx, p.ID, slot); err != nil {
			return err
		}
		return s.appendStep(ctx, p.ID, fmt.Sprintf("%s_by_%s", d, party), actor, note)
	})
	if err != nil {
		return nil, err
	}
	p.Slots = s.gate.Order(p.Slots)

	if changed {
		after := p.Status()
		s.notifier.Notify(notify.Event{
			Topic:     TopicDecided,
			OwnerType: string(ledger.OwnerPermit),
			OwnerID:   p.ID,
			Step:      fmt.Sprintf("%s_by_%s", d, party),
			Status:    string(after),
			ActorID:   actor.ID,
			Attributes: map[string]string{
				"party": string(party),
			},
		})
		if after != before && (after == approval.StatusApproved || after == approval.StatusRejected) {
			s.notifier.Notify(notify.Event{
				Topic:     TopicFinalized,
				OwnerType: string(ledger.OwnerPermit),
				OwnerID:   p.ID,
				Status:    string(after),
				ActorID:   actor.ID,
				Attributes: map[string]string{
					"company_name": p.CompanyName,
				},
			})
		}
	}
	return p, nil
}

func (s *service) Edit(ctx context.Context, actor auth.Actor, id string, req EditRequest) (*Permit, error) {
	if err := auth.Authorize(actor, auth.PermCreatePermit); err != nil {
		return nil, err
	}
	if req.isEmpty() {
		return nil, ErrNothingToApply
	}

	var p *Permit
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := approval.CanEdit(p.Status()); err != nil {
			return err
		}

		req.apply(&p.Details)
		p.Details = normalizeDetails(p.Details)
		if err := validateDetails(&p.Details); err != nil {
			return err
		}
		replaceWorkers := req.Workers != nil
		if replaceWorkers {
			p.Workers = normalizeWorkers(*req.Workers)
			if err := validateWorkers(p.Workers); err != nil {
				return err
			}
		}
		p.NeedsRevision = false

		if err := s.repo.Update(ctx, p, replaceWorkers); err != nil {
			return err
		}
		return s.appendStep(ctx, p.ID, stepEdited, actor, req.Note)
	})
	if err != nil {
		return nil, err
	}
	p.Slots = s.gate.Order(p.Slots)
	return p, nil
}

func (s *service) SetStatus(ctx context.Context, actor auth.Actor, id string, status string, note *string) (*Permit, error) {
	if err := auth.Authorize(actor, auth.PermSetPermitStatus); err != nil {
		return nil, err
	}

	var flag bool
	var step string
	switch approval.Status(status) {
	case approval.StatusIncomplete:
		flag, step = true, stepIncomplete
	case approval.StatusPending:
		flag, step = false, stepPending
	default:
		return nil, ErrInvalidStatus
	}

	var p *Permit
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := approval.CanEdit(p.Status()); err != nil {
			return err
		}

		p.NeedsRevision = flag
		if err := s.repo.SetNeedsRevision(ctx, p.ID, flag); err != nil {
			return err
		}
		return s.appendStep(ctx, p.ID, step, actor, note)
	})
	if err != nil {
		return nil, err
	}
	p.Slots = s.gate.Order(p.Slots)
	return p, nil
}

func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.Recent(ctx, dashboardRecent)
	if err != nil {
		return nil, err
	}
	incomplete, err := s.repo.ListByStatus(ctx, approval.StatusIncomplete)
	if err != nil {
		return nil, err
	}
	s.order(recent)
	s.order(incomplete)
	return &Dashboard{Counts: *counts, Recent: recent, Incomplete: incomplete}, nil
}

func (s *service) Workflow(ctx context.Context, id string) ([]*ledger.Event, error) {
	events, err := s.ledger.List(ctx, ledger.OwnerPermit, id)
	if errors.Is(err, ledger.ErrUnknownOwner) {
		return nil, ErrNotFound
	}
	return events, err
}

func (s *service) appendStep(ctx context.Context, id, step string, actor auth.Actor, note *string) error {
	_, err := s.ledger.Append(ctx, ledger.AppendRequest{
		OwnerType: ledger.OwnerPermit,
		OwnerID:   id,
		Step:      step,
		ActorID:   &actor.ID,
		Note:      note,
	})
	return err
}

func (s *service) order(permits []*Permit) {
	for _, p := range permits {
		p.Slots = s.gate.Order(p.Slots)
	}
}

func (r EditRequest) isEmpty() bool {
	return r.CompanyName == nil && r.JobLocation == nil && r.OnsiteInCharge == nil && r.ContactNo == nil &&
		r.Ref == nil && r.RequesterType == nil && r.JobDateFrom == nil && r.JobDateTo == nil &&
		r.JobTimeFrom == nil && r.JobTimeTo == nil && r.JobType == nil && r.JobDescription == nil &&
		r.RequestedBy == nil && r.RiskAssessment == nil && r.SafetyMeasures == nil && r.EquipmentList == nil &&
		r.NeedPowerCut == nil && r.NeedMallStaff == nil && r.ExtraNotes == nil && r.Workers == nil
}

func (r EditRequest) apply(d *Details) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&d.CompanyName, r.CompanyName)
	setString(&d.JobLocation, r.JobLocation)
	setString(&d.OnsiteInCharge, r.OnsiteInCharge)
	setString(&d.ContactNo, r.ContactNo)
	setString(&d.JobTimeFrom, r.JobTimeFrom)
	setString(&d.JobTimeTo, r.JobTimeTo)
	setString(&d.JobType, r.JobType)
	setString(&d.JobDescription, r.JobDescription)
	setString(&d.RequestedBy, r.RequestedBy)

	if r.Ref != nil {
		d.Ref = r.Ref
	}
	if r.RequesterType != nil {
		d.RequesterType = *r.RequesterType
	}
	if r.JobDateFrom != nil {
		d.JobDateFrom = *r.JobDateFrom
	}
	if r.JobDateTo != nil {
		d.JobDateTo = *r.JobDateTo
	}
	if r.RiskAssessment != nil {
		d.RiskAssessment = r.RiskAssessment
	}
	if r.SafetyMeasures != nil {
		d.SafetyMeasures = r.SafetyMeasures
	}
	if r.EquipmentList != nil {
		d.EquipmentList = *r.EquipmentList
	}
	if r.NeedPowerCut != nil {
		d.NeedPowerCut = *r.NeedPowerCut
	}
	if r.NeedMallStaff != nil {
		d.NeedMallStaff = *r.NeedMallStaff
	}
	if r.ExtraNotes != nil {
		d.ExtraNotes = r.ExtraNotes
	}
}

func normalizeDetails(d Details) Details {
	for _, f := range []*string{
		&d.CompanyName, &d.JobLocation, &d.OnsiteInCharge, &d.ContactNo,
		&d.JobTimeFrom, &d.JobTimeTo, &d.JobType, &d.JobDescription, &d.RequestedBy,
	} {
		*f = strings.TrimSpace(*f)
	}
	d.JobDateFrom = d.JobDateFrom.UTC()
	d.JobDateTo = d.JobDateTo.UTC()

	equipment := make([]string, 0, len(d.EquipmentList))
	for _, item := range d.EquipmentList {
		if item = strings.TrimSpace(item); item != "" {
			equipment = append(equipment, item)
		}
	}
	d.EquipmentList = equipment
	return d
}

func validateDetails(d *Details) error {
	required := []struct {
		name  string
		value string
	}{
		{"company_name", d.CompanyName},
		{"job_location", d.JobLocation},
		{"onsite_in_charge", d.OnsiteInCharge},
		{"contact_no", d.ContactNo},
		{"job_type", d.JobType},
		{"requested_by", d.RequestedBy},
	}
	for _, f := range required {
		if f.value == "" {
			return apperror.Validation(f.name + " is required")
		}
	}
	if !d.RequesterType.Valid() {
		return ErrInvalidRequesterType
	}
	window := interval.Interval{Start: d.JobDateFrom, End: d.JobDateTo}
	if err := window.Validate(); err != nil {
		return ErrInvalidJobWindow
	}
	return nil
}

func normalizeWorkers(in []Worker) []Worker {
	out := make([]Worker, len(in))
	for i, w := range in {
		out[i] = Worker{ID: w.ID, Name: strings.TrimSpace(w.Name), Code: w.Code}
	}
	return out
}

func validateWorkers(workers []Worker) error {
	for _, w := range workers {
		if w.Name == "" {
			return ErrWorkerNameRequired
		}
	}
	return nil
}
