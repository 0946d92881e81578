package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *PermitHandler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/permits")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		read := auth.RequirePermission(auth.PermReadPermits)
		request := auth.RequirePermission(auth.PermCreatePermit)

		group.GET("", read, h.List)
		group.GET("/dashboard", read, h.Dashboard)
		group.GET("/pending/:party", read, h.ListPending)
		group.GET("/:id", read, h.Get)
		group.GET("/:id/workflow", read, h.Workflow)

		group.POST("", request, h.Create)
		group.PATCH("/:id", request, h.Edit)
		group.POST("/:id/status", auth.RequirePermission(auth.PermSetPermitStatus), h.SetStatus)

		// Party checks happen in the service: each department decides only for itself.
		group.POST("/:id/approve/:party", h.Approve)
		group.POST("/:id/reject/:party", h.Reject)
	}
}
