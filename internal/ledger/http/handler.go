package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/mall-admin-backend/internal/ledger"
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/response"
)

type LedgerHandler struct {
	service ledger.Service
}

func NewHandler(service ledger.Service) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// Read returns an owner's full workflow history, oldest first.
func (h *LedgerHandler) Read(c *gin.Context) {
	var uri ReadLedgerRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}

	ownerType, err := ledger.ParseOwnerType(uri.OwnerType)
	if err != nil {
		response.Error(c, err)
		return
	}

	events, err := h.service.List(c.Request.Context(), ownerType, uri.OwnerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewListResponse(NewEventResponses(events)))
}
