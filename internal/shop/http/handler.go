package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/request"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/response"
	"github.com/nekogravitycat/mall-admin-backend/internal/shop"
)

type ShopHandler struct {
	service shop.Service
}

func NewHandler(service shop.Service) *ShopHandler {
	return &ShopHandler{service: service}
}

func (h *ShopHandler) List(c *gin.Context) {
	var req ListShopsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	shops, total, err := h.service.List(c.Request.Context(), shop.Filter{
		Keyword:   req.Keyword,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]ShopResponse, len(shops))
	for i, sh := range shops {
		items[i] = NewShopResponse(sh)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *ShopHandler) Create(c *gin.Context) {
	var body CreateShopRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BindError(c, err)
		return
	}

	sh, err := h.service.Create(c.Request.Context(), shop.CreateRequest{
		Name:     body.Name,
		Location: body.Location,
		Size:     body.Size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewShopResponse(sh))
}

func (h *ShopHandler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}

	sh, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewShopResponse(sh))
}
