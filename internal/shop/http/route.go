package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *ShopHandler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/shops")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", auth.RequirePermission(auth.PermManageShops), h.Create)
	}
}
