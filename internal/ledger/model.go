package ledger

import (
	"time"

	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/apperror"
)

var (
	ErrUnknownOwnerType = apperror.Validation("unknown owner type")
	ErrUnknownOwner     = apperror.Validation("unknown owner")
	ErrStepRequired     = apperror.Validation("step is required")
)

// OwnerType names the kind of entity a workflow event belongs to.
type OwnerType string

const (
	OwnerContract    OwnerType = "contract"
	OwnerPermit      OwnerType = "permit"
	OwnerTask        OwnerType = "task"
	OwnerMaintenance OwnerType = "maintenance"
)

// ParseOwnerType validates a raw owner type.
func ParseOwnerType(raw string) (OwnerType, error) {
	switch t := OwnerType(raw); t {
	case OwnerContract, OwnerPermit, OwnerTask, OwnerMaintenance:
		return t, nil
	}
	return "", ErrUnknownOwnerType
}

// Event is one immutable entry in an owner's workflow history.
// Events are ordered by OccurredAt, then by Seq (insertion order).
type Event struct {
	ID         string
	Seq        int64
	OwnerType  OwnerType
	OwnerID    string
	Step       string
	ActorID    *string
	Note       *string
	OccurredAt time.Time
}
