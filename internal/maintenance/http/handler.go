package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
	ledgerHttp "github.com/nekogravitycat/mall-admin-backend/internal/ledger/http"
	"github.com/nekogravitycat/mall-admin-backend/internal/maintenance"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/request"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/response"
)

type MaintenanceHandler struct {
	service maintenance.Service
}

func NewHandler(service maintenance.Service) *MaintenanceHandler {
	return &MaintenanceHandler{service: service}
}

func (h *MaintenanceHandler) List(c *gin.Context) {
	var req ListMaintenanceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	items, total, err := h.service.List(c.Request.Context(), actor, maintenance.Filter{
		TenantID:  req.TenantID,
		Category:  req.Category,
		Status:    req.Status,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewPageResponse(NewMaintenanceResponses(items), req.Page, req.PageSize, total))
}

func (h *MaintenanceHandler) Create(c *gin.Context) {
	var body CreateMaintenanceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BindError(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	m, err := h.service.Create(c.Request.Context(), actor, maintenance.CreateRequest{
		TenantID:      body.TenantID,
		Description:   body.Description,
		Category:      body.Category,
		SuggestedTime: body.SuggestedTime,
		Workers:       body.Workers,
		Note:          body.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewMaintenanceResponse(m))
}

func (h *MaintenanceHandler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	m, err := h.service.GetByID(c.Request.Context(), actor, uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewMaintenanceResponse(m))
}

func (h *MaintenanceHandler) AppendStep(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}
	var body AppendStepRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BindError(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	m, ev, err := h.service.AppendStep(c.Request.Context(), actor, uri.ID, maintenance.StepRequest{
		Step:     body.Step,
		Note:     body.Note,
		AssignTo: body.AssignedTo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, StepResponse{Request: NewMaintenanceResponse(m), Event: ledgerHttp.NewEventResponse(ev)})
}

func (h *MaintenanceHandler) Workflow(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	events, err := h.service.Workflow(c.Request.Context(), actor, uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewListResponse(ledgerHttp.NewEventResponses(events)))
}
