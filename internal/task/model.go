package task

import (
	"time"

	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/mall-admin-backend/internal/status"
)

var (
	ErrNotFound           = apperror.NotFound("task not found")
	ErrTitleRequired      = apperror.Validation("title is required")
	ErrDepartmentRequired = apperror.Validation("department is required")
	ErrInvalidStatus      = apperror.Validation("invalid task status")
	ErrNothingToApply     = apperror.Validation("no changes requested")
	ErrNotInDepartment    = apperror.Forbidden("task belongs to another department")
)

type Status string

const (
	StatusRed      Status = status.TaskRed
	StatusYellow   Status = status.TaskYellow
	StatusGreen    Status = status.TaskGreen
	StatusReturned Status = status.TaskReturned
	StatusPending  Status = status.TaskPending
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusRed, StatusYellow, StatusGreen, StatusReturned, StatusPending:
		return s, nil
	}
	return "", ErrInvalidStatus
}

// Task is a unit of department work. Status is never set directly: it is
// derived from the latest workflow step.
type Task struct {
	ID           string
	Title        string
	Description  *string
	Status       Status
	CreatedBy    string
	AssignedTo   *string
	DepartmentID string
	DueDate      *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (t *Task) assignedTo(userID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// Scope restricts a listing to tasks owned by Department or assigned to UserID.
type Scope struct {
	Department string
	UserID     string
}

type Filter struct {
	DepartmentID string
	AssignedTo   string
	Scope        *Scope
	Status       string
	Page         int
	PageSize     int
	SortOrder    string
}
