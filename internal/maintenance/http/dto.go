package http

import (
	"time"

	ledgerHttp "github.com/nekogravitycat/mall-admin-backend/internal/ledger/http"
	"github.com/nekogravitycat/mall-admin-backend/internal/maintenance"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/request"
)

type MaintenanceResponse struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	Description   string     `json:"description"`
	Category      *string    `json:"category"`
	SuggestedTime *time.Time `json:"suggested_time"`
	Workers       []string   `json:"workers"`
	Status        string     `json:"status"`
	AssignedTo    *string    `json:"assigned_to"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ResolvedAt    *time.Time `json:"resolved_at"`
}

func NewMaintenanceResponse(m *maintenance.Request) MaintenanceResponse {
	workers := m.Workers
	if workers == nil {
		workers = []string{}
	}
	return MaintenanceResponse{
		ID:            m.ID,
		TenantID:      m.TenantID,
		Description:   m.Description,
		Category:      m.Category,
		SuggestedTime: m.SuggestedTime,
		Workers:       workers,
		Status:        string(m.Status),
		AssignedTo:    m.AssignedTo,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		ResolvedAt:    m.ResolvedAt,
	}
}

func NewMaintenanceResponses(items []*maintenance.Request) []MaintenanceResponse {
	out := make([]MaintenanceResponse, len(items))
	for i, m := range items {
		out[i] = NewMaintenanceResponse(m)
	}
	return out
}

// StepResponse is the request after a step together with the event that moved it.
type StepResponse struct {
	Request MaintenanceResponse      `json:"request"`
	Event   ledgerHttp.EventResponse `json:"event"`
}

type CreateMaintenanceRequest struct {
	TenantID      string     `json:"tenant_id"`
	Description   string     `json:"description" binding:"required"`
	Category      *string    `json:"category"`
	SuggestedTime *time.Time `json:"suggested_time"`
	Workers       []string   `json:"workers" binding:"omitempty,dive,required"`
	Note          *string    `json:"note"`
}

type AppendStepRequest struct {
	Step       string  `json:"step" binding:"required"`
	Note       *string `json:"note"`
	AssignedTo *string `json:"assigned_to"`
}

type ListMaintenanceRequest struct {
	request.ListParams
	TenantID string `form:"tenant_id"`
	Category string `form:"category"`
	Status   string `form:"status"`
}
