package permit

import (
	"time"

	"github.com/nekogravitycat/mall-admin-backend/internal/approval"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/apperror"
)

var (
	ErrNotFound             = apperror.NotFound("permit request not found")
	ErrInvalidRequesterType = apperror.Validation("tenant_or_contractor must be tenant or contractor")
	ErrInvalidJobWindow     = apperror.Validation("job_date_from must be before job_date_to")
	ErrInvalidStatus        = apperror.Validation("status can only be set to pending or incomplete")
	ErrWorkerNameRequired   = apperror.Validation("worker name is required")
	ErrNotPartyApprover     = apperror.Forbidden("only the department's manager can decide for it")
	ErrNothingToApply       = apperror.Validation("no changes requested")
)

// RequesterType tells whether the work is requested by a tenant or an outside contractor.
type RequesterType string

const (
	RequesterTenant     RequesterType = "tenant"
	RequesterContractor RequesterType = "contractor"
)

func (t RequesterType) Valid() bool {
	return t == RequesterTenant || t == RequesterContractor
}

// Details are the editable fields of a permit request.
type Details struct {
	CompanyName    string
	JobLocation    string
	OnsiteInCharge string
	ContactNo      string
	Ref            *string
	RequesterType  RequesterType
	JobDateFrom    time.Time
	JobDateTo      time.Time
	JobTimeFrom    string
	JobTimeTo      string
	JobType        string
	JobDescription string
	RequestedBy    string
	RiskAssessment *string
	SafetyMeasures *string
	EquipmentList  []string
	NeedPowerCut   bool
	NeedMallStaff  bool
	ExtraNotes     *string
}

type Worker struct {
	ID   string
	Name string
	Code *string
}

// Permit is a work permit request gated by one approval slot per department.
type Permit struct {
	ID string
	Details
	Workers []Worker
	Slots   []approval.Slot
	// NeedsRevision is the caller-set "incomplete" flag. It only shows while
	// the slots are undecided.
	NeedsRevision bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Status is derived from the slots and the revision flag; it is never stored.
func (p *Permit) Status() approval.Status {
	return approval.Resolve(p.Slots, p.NeedsRevision)
}

type Filter struct {
	Status      string
	CompanyName string
	Page        int
	PageSize    int
	SortOrder   string
}

// Counts is the number of permit requests per derived status.
type Counts struct {
	Total      int
	Approved   int
	Rejected   int
	Incomplete int
	Pending    int
}

type Dashboard struct {
	Counts     Counts
	Recent     []*Permit
	Incomplete []*Permit
}

// Add records n requests in status st.
func (c *Counts) Add(st approval.Status, n int) {
	c.Total += n
	switch st {
	case approval.StatusApproved:
		c.Approved += n
	case approval.StatusRejected:
		c.Rejected += n
	case approval.StatusIncomplete:
		c.Incomplete += n
	case approval.StatusPending:
		c.Pending += n
	}
}
