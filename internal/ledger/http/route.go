package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *LedgerHandler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/ledger")

	group.Use(authMiddleware, auth.RequirePermission(auth.PermReadWorkflowLedger))
	{
		group.GET("/:owner_type/:owner_id", h.Read)
	}
}
