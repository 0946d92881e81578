package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
	"github.com/nekogravitycat/mall-admin-backend/internal/contract"
	ledgerHttp "github.com/nekogravitycat/mall-admin-backend/internal/ledger/http"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/request"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/response"
)

type ContractHandler struct {
	service contract.Service
}

func NewHandler(service contract.Service) *ContractHandler {
	return &ContractHandler{service: service}
}

func (h *ContractHandler) List(c *gin.Context) {
	var req ListContractsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	contracts, total, err := h.service.List(c.Request.Context(), contract.Filter{
		ShopID:    req.ShopID,
		TenantID:  req.TenantID,
		Status:    req.Status,
		ActiveAt:  req.ActiveAt,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]ContractResponse, len(contracts))
	for i, ct := range contracts {
		items[i] = NewContractResponse(ct)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *ContractHandler) Create(c *gin.Context) {
	var body CreateContractRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BindError(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	ct, err := h.service.Create(c.Request.Context(), actor, contract.CreateRequest{
		ShopID:    body.ShopID,
		TenantID:  body.TenantID,
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Amount:    body.Amount,
		Note:      body.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewContractResponse(ct))
}

func (h *ContractHandler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}

	ct, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewContractResponse(ct))
}

// Update changes the contract period and/or amount.
func (h *ContractHandler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}
	var body UpdateContractRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BindError(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	ct, err := h.service.Update(c.Request.Context(), actor, uri.ID, contract.UpdateRequest{
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Amount:    body.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewContractResponse(ct))
}

func (h *ContractHandler) SetStatus(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}
	var body SetStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BindError(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	ct, err := h.service.SetStatus(c.Request.Context(), actor, uri.ID, body.Status, body.Note)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewContractResponse(ct))
}

func (h *ContractHandler) Workflow(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}

	events, err := h.service.Workflow(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewListResponse(ledgerHttp.NewEventResponses(events)))
}
