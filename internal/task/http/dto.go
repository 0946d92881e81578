package http

import (
	"time"

	ledgerHttp "github.com/nekogravitycat/mall-admin-backend/internal/ledger/http"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/request"
	"github.com/nekogravitycat/mall-admin-backend/internal/task"
)

type TaskResponse struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  *string    `json:"description"`
	Status       string     `json:"status"`
	CreatedBy    string     `json:"created_by"`
	AssignedTo   *string    `json:"assigned_to"`
	DepartmentID string     `json:"department_id"`
	DueDate      *time.Time `json:"due_date"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func NewTaskResponse(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       string(t.Status),
		CreatedBy:    t.CreatedBy,
		AssignedTo:   t.AssignedTo,
		DepartmentID: t.DepartmentID,
		DueDate:      t.DueDate,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func NewTaskResponses(tasks []*task.Task) []TaskResponse {
	out := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		out[i] = NewTaskResponse(t)
	}
	return out
}

// StepResponse is the task after a step together with the event that moved it.
type StepResponse struct {
	Task  TaskResponse             `json:"task"`
	Event ledgerHttp.EventResponse `json:"event"`
}

type CreateTaskRequest struct {
	Title        string     `json:"title" binding:"required"`
	Description  *string    `json:"description"`
	AssignedTo   *string    `json:"assigned_to"`
	DepartmentID string     `json:"department_id" binding:"required"`
	DueDate      *time.Time `json:"due_date"`
	Note         *string    `json:"note"`
}

type CreateDepartmentTasksRequest struct {
	Title         string     `json:"title" binding:"required"`
	Description   *string    `json:"description"`
	DepartmentIDs []string   `json:"department_ids" binding:"required,min=1,dive,required"`
	DueDate       *time.Time `json:"due_date"`
}

type UpdateTaskRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	AssignedTo   *string    `json:"assigned_to"`
	DepartmentID *string    `json:"department_id"`
	DueDate      *time.Time `json:"due_date"`
}

type AppendStepRequest struct {
	Step string  `json:"step" binding:"required"`
	Note *string `json:"note"`
}

type ListTasksRequest struct {
	request.ListParams
	DepartmentID string `form:"department_id"`
	Status       string `form:"status"`
}
