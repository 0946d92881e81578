package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *TaskHandler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/tasks")

	// === Authenticated Routes ===
	// Read and step routes are scoped to the actor's department by the service.
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.GET("/:id/workflow", h.Workflow)
		group.POST("/:id/workflow", h.AppendStep)

		group.POST("", auth.RequirePermission(auth.PermCreateTask), h.Create)
		group.POST("/departments", auth.RequirePermission(auth.PermCreateDeptTasks), h.CreateForDepartments)
		group.PATCH("/:id", auth.RequirePermission(auth.PermUpdateTask), h.Update)
	}
}
