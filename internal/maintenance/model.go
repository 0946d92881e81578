package maintenance

import (
	"time"

	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/mall-admin-backend/internal/status"
)

var (
	ErrNotFound            = apperror.NotFound("maintenance request not found")
	ErrTenantRequired      = apperror.Validation("tenant_id is required")
	ErrDescriptionRequired = apperror.Validation("description is required")
	ErrInvalidStatus       = apperror.Validation("invalid maintenance status")
	ErrNotOwnRequest       = apperror.Forbidden("maintenance request belongs to another tenant")
)

type Status string

const (
	StatusPending    Status = status.MaintenancePending
	StatusInProgress Status = status.MaintenanceInProgress
	StatusResolved   Status = status.MaintenanceResolved
	StatusRejected   Status = status.MaintenanceRejected
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return s, nil
	}
	return "", ErrInvalidStatus
}

// Request is a tenant's repair request. Status follows its latest workflow
// step; ResolvedAt is set while the request is resolved.
type Request struct {
	ID            string
	TenantID      string
	Description   string
	Category      *string
	SuggestedTime *time.Time
	Workers       []string
	Status        Status
	AssignedTo    *string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
}

type Filter struct {
	TenantID  string
	Category  string
	Status    string
	Page      int
	PageSize  int
	SortOrder string
}
