package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
	ledgerHttp "github.com/nekogravitycat/mall-admin-backend/internal/ledger/http"
	"github.com/nekogravitycat/mall-admin-backend/internal/permit"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/request"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/response"
)

type PermitHandler struct {
	service permit.Service
}

func NewHandler(service permit.Service) *PermitHandler {
	return &PermitHandler{service: service}
}

func (h *PermitHandler) List(c *gin.Context) {
	var req ListPermitsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	permits, total, err := h.service.List(c.Request.Context(), permit.Filter{
		Status:      req.Status,
		CompanyName: req.CompanyName,
		Page:        req.Page,
		PageSize:    req.PageSize,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewPageResponse(NewPermitResponses(permits), req.Page, req.PageSize, total))
}

// ListPending returns requests still waiting on the given department.
func (h *PermitHandler) ListPending(c *gin.Context) {
	var uri PartyURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}

	permits, err := h.service.ListPending(c.Request.Context(), uri.Party)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewListResponse(NewPermitResponses(permits)))
}

func (h *PermitHandler) Dashboard(c *gin.Context) {
	d, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewDashboardResponse(d))
}

func (h *PermitHandler) Create(c *gin.Context) {
	var body CreatePermitRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BindError(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	p, err := h.service.Create(c.Request.Context(), actor, body.toDomain())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewPermitResponse(p))
}

func (h *PermitHandler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewPermitResponse(p))
}

func (h *PermitHandler) Edit(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}
	var body EditPermitRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BindError(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	p, err := h.service.Edit(c.Request.Context(), actor, uri.ID, body.toDomain())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewPermitResponse(p))
}

func (h *PermitHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

func (h *PermitHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

type decideFunc func(ctx context.Context, actor auth.Actor, id, party string, note *string) (*permit.Permit, error)

func (h *PermitHandler) decide(c *gin.Context, fn decideFunc) {
	var uri DecisionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}
	// The body is optional; an empty one means no note.
	var body DecisionRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		response.BindError(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	p, err := fn(c.Request.Context(), actor, uri.ID, uri.Party, body.Note)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewPermitResponse(p))
}

func (h *PermitHandler) SetStatus(c *gin.Context) {
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
	p, err := h.service.SetStatus(c.Request.Context(), actor, uri.ID, body.Status, body.Note)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewPermitResponse(p))
}

func (h *PermitHandler) Workflow(c *gin.Context) {
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
