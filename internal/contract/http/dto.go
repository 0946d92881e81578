package http

import (
	"time"

	"github.com/nekogravitycat/mall-admin-backend/internal/contract"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/request"
)

type ContractResponse struct {
	ID        string    `json:"id"`
	ShopID    string    `json:"shop_id"`
	TenantID  string    `json:"tenant_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewContractResponse(c *contract.Contract) ContractResponse {
	return ContractResponse{
		ID:        c.ID,
		ShopID:    c.ShopID,
		TenantID:  c.TenantID,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
		Amount:    c.Amount,
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type CreateContractRequest struct {
	ShopID    string    `json:"shop_id" binding:"required,uuid"`
	TenantID  string    `json:"tenant_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	Amount    float64   `json:"amount" binding:"min=0"`
	Note      *string   `json:"note"`
}

type UpdateContractRequest struct {
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Amount    *float64   `json:"amount" binding:"omitempty,min=0"`
}

type SetStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Note   *string `json:"note"`
}

type ListContractsRequest struct {
	request.ListParams
	ShopID   string     `form:"shop_id" binding:"omitempty,uuid"`
	TenantID string     `form:"tenant_id"`
	Status   string     `form:"status"`
	ActiveAt *time.Time `form:"active_at" time_format:"2006-01-02T15:04:05Z07:00"`
}
