package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
	ledgerHttp "github.com/nekogravitycat/mall-admin-backend/internal/ledger/http"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/request"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/response"
	"github.com/nekogravitycat/mall-admin-backend/internal/task"
)

type TaskHandler struct {
	service task.Service
}

func NewHandler(service task.Service) *TaskHandler {
	return &TaskHandler{service: service}
}

func (h *TaskHandler) List(c *gin.Context) {
	var req ListTasksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	tasks, total, err := h.service.List(c.Request.Context(), actor, task.Filter{
		DepartmentID: req.DepartmentID,
		Status:       req.Status,
		Page:         req.Page,
		PageSize:     req.PageSize,
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewPageResponse(NewTaskResponses(tasks), req.Page, req.PageSize, total))
}

func (h *TaskHandler) Create(c *gin.Context) {
	var body CreateTaskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BindError(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	t, err := h.service.Create(c.Request.Context(), actor, task.CreateRequest{
		Title:        body.Title,
		Description:  body.Description,
		AssignedTo:   body.AssignedTo,
		DepartmentID: body.DepartmentID,
		DueDate:      body.DueDate,
		Note:         body.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewTaskResponse(t))
}

// CreateForDepartments fans one task out to several departments.
func (h *TaskHandler) CreateForDepartments(c *gin.Context) {
	var body CreateDepartmentTasksRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BindError(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	tasks, err := h.service.CreateForDepartments(c.Request.Context(), actor, task.DepartmentsRequest{
		Title:         body.Title,
		Description:   body.Description,
		DepartmentIDs: body.DepartmentIDs,
		DueDate:       body.DueDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.NewListResponse(NewTaskResponses(tasks)))
}

func (h *TaskHandler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	t, err := h.service.GetByID(c.Request.Context(), actor, uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewTaskResponse(t))
}

func (h *TaskHandler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}
	var body UpdateTaskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BindError(c, err)
		return
	}

	actor, _ := auth.GetActor(c)
	t, err := h.service.Update(c.Request.Context(), actor, uri.ID, task.UpdateRequest{
		Title:        body.Title,
		Description:  body.Description,
		AssignedTo:   body.AssignedTo,
		DepartmentID: body.DepartmentID,
		DueDate:      body.DueDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewTaskResponse(t))
}

func (h *TaskHandler) AppendStep(c *gin.Context) {
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
	t, ev, err := h.service.AppendStep(c.Request.Context(), actor, uri.ID, body.Step, body.Note)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, StepResponse{Task: NewTaskResponse(t), Event: ledgerHttp.NewEventResponse(ev)})
}

func (h *TaskHandler) Workflow(c *gin.Context) {
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
