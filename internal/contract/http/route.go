package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *ContractHandler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/contracts")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		read := auth.RequirePermission(auth.PermReadContracts)
		manage := auth.RequirePermission(auth.PermManageContracts)

		group.GET("", read, h.List)
		group.GET("/:id", read, h.Get)
		group.GET("/:id/workflow", read, h.Workflow)
		group.POST("", manage, h.Create)
		group.PATCH("/:id", manage, h.Update)
		group.POST("/:id/status", manage, h.SetStatus)
	}
}
