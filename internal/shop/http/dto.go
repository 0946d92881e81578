package http

import (
	"time"

	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/request"
	"github.com/nekogravitycat/mall-admin-backend/internal/shop"
)

type ShopResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Size      float64   `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

func NewShopResponse(sh *shop.Shop) ShopResponse {
	return ShopResponse{
		ID:        sh.ID,
		Name:      sh.Name,
		Location:  sh.Location,
		Size:      sh.Size,
		CreatedAt: sh.CreatedAt,
	}
}

type CreateShopRequest struct {
	Name     string  `json:"name" binding:"required"`
	Location string  `json:"location"`
	Size     float64 `json:"size" binding:"required,gt=0"`
}

type ListShopsRequest struct {
	request.ListParams
	Keyword string `form:"q"`
}
