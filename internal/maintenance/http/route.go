package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *MaintenanceHandler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/maintenance")

	// === Authenticated Routes ===
	// Tenants are limited to their own requests by the service.
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.GET("/:id/workflow", h.Workflow)

		group.POST("", auth.RequirePermission(auth.PermCreateMaintenance), h.Create)
		group.POST("/:id/workflow", auth.RequirePermission(auth.PermHandleMaintenance), h.AppendStep)
	}
}
