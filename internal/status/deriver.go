// Package status maps the step label of the most recent workflow event to an
// owner's coarse status. It looks at one label only: earlier history is never
// reconsidered, so a later step can move a status backwards.
package status

import (
	"github.com/nekogravitycat/mall-admin-backend/internal/ledger"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/apperror"
)

var ErrNoTable = apperror.Validation("owner type has no status table")

// Task statuses.
const (
	TaskRed      = "red"
	TaskYellow   = "yellow"
	TaskGreen    = "green"
	TaskReturned = "returned"
	TaskPending  = "pending"
)

// Maintenance statuses.
const (
	MaintenancePending    = "pending"
	MaintenanceInProgress = "in_progress"
	MaintenanceResolved   = "resolved"
	MaintenanceRejected   = "rejected"
)

// Contract statuses. A contract step label is the status it moved to.
const (
	ContractDraft           = "draft"
	ContractPendingApproval = "pending_approval"
	ContractApproved        = "approved"
	ContractSigned          = "signed"
	ContractActive          = "active"
	ContractRejected        = "rejected"
	ContractCancelled       = "cancelled"
)

// Table is a fixed label to status mapping with a fallback for unlisted labels.
type Table struct {
	labels   map[string]string
	fallback string
}

// Lookup returns the status for label, or the fallback.
func (t Table) Lookup(label string) string {
	if s, ok := t.labels[label]; ok {
		return s
	}
	return t.fallback
}

var taskTable = Table{
	labels: map[string]string{
		"completed":      TaskGreen,
		"green":          TaskGreen,
		"yellow_warning": TaskYellow,
		"yellow":         TaskYellow,
		"returned":       TaskReturned,
		"rejected":       TaskReturned,
	},
	fallback: TaskRed,
}

var maintenanceTable = Table{
	labels: map[string]string{
		"assigned":    MaintenanceInProgress,
		"in_progress": MaintenanceInProgress,
		"resolved":    MaintenanceResolved,
		"completed":   MaintenanceResolved,
		"rejected":    MaintenanceRejected,
		"cancelled":   MaintenanceRejected,
	},
	fallback: MaintenancePending,
}

// Contract steps carry the status verbatim; an unknown label falls back to draft.
var contractTable = Table{
	labels: map[string]string{
		ContractDraft:           ContractDraft,
		ContractPendingApproval: ContractPendingApproval,
		ContractApproved:        ContractApproved,
		ContractSigned:          ContractSigned,
		ContractActive:          ContractActive,
		ContractRejected:        ContractRejected,
		ContractCancelled:       ContractCancelled,
	},
	fallback: ContractDraft,
}

// Deriver holds one table per owner type.
type Deriver struct {
	tables map[ledger.OwnerType]Table
}

// NewDeriver returns a Deriver with the built-in task, contract and maintenance tables.
func NewDeriver() *Deriver {
	return &Deriver{
		tables: map[ledger.OwnerType]Table{
			ledger.OwnerTask:        taskTable,
			ledger.OwnerContract:    contractTable,
			ledger.OwnerMaintenance: maintenanceTable,
		},
	}
}

// Derive maps latestStep to a status for ownerType.
func (d *Deriver) Derive(ownerType ledger.OwnerType, latestStep string) (string, error) {
	t, ok := d.tables[ownerType]
	if !ok {
		return "", ErrNoTable
	}
	return t.Lookup(latestStep), nil
}

// FromEvent derives the status from a single event.
func (d *Deriver) FromEvent(ev *ledger.Event) (string, error) {
	return d.Derive(ev.OwnerType, ev.Step)
}
