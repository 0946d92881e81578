package contract

import (
	"time"

	"github.com/nekogravitycat/mall-admin-backend/internal/interval"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/mall-admin-backend/internal/status"
)

var (
	ErrNotFound       = apperror.NotFound("contract not found")
	ErrShopNotFound   = apperror.NotFound("shop not found")
	ErrTimeConflict   = apperror.Conflict("shop is already leased for an overlapping period")
	ErrInvalidStatus  = apperror.Validation("invalid contract status")
	ErrInvalidAmount  = apperror.Validation("amount must not be negative")
	ErrTenantRequired = apperror.Validation("tenant is required")
	ErrNothingToApply = apperror.Validation("no changes requested")
)

type Status string

const (
	StatusDraft           Status = status.ContractDraft
	StatusPendingApproval Status = status.ContractPendingApproval
	StatusApproved        Status = status.ContractApproved
	StatusSigned          Status = status.ContractSigned
	StatusActive          Status = status.ContractActive
	StatusRejected        Status = status.ContractRejected
	StatusCancelled       Status = status.ContractCancelled
)

var allStatuses = map[Status]struct{}{
	StatusDraft:           {},
	StatusPendingApproval: {},
	StatusApproved:        {},
	StatusSigned:          {},
	StatusActive:          {},
	StatusRejected:        {},
	StatusCancelled:       {},
}

// OccupyingStatuses hold the shop for their period and take part in conflict checks.
var OccupyingStatuses = []Status{StatusPendingApproval, StatusApproved, StatusSigned, StatusActive}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := allStatuses[s]; !ok {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// Occupying reports whether a contract in status s reserves its shop.
func (s Status) Occupying() bool {
	for _, o := range OccupyingStatuses {
		if s == o {
			return true
		}
	}
	return false
}

type Contract struct {
	ID        string
	ShopID    string
	TenantID  string
	StartTime time.Time
	EndTime   time.Time
	Amount    float64
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Contract) Interval() interval.Interval {
	return interval.Interval{Start: c.StartTime, End: c.EndTime}
}

type Filter struct {
	ShopID    string
	TenantID  string
	Status    string
	ActiveAt  *time.Time // contracts whose period contains this instant
	Page      int
	PageSize  int
	SortOrder string
}
