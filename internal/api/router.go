package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
	"github.com/nekogravitycat/mall-admin-backend/internal/contract"
	contractHttp "github.com/nekogravitycat/mall-admin-backend/internal/contract/http"
	"github.com/nekogravitycat/mall-admin-backend/internal/ledger"
	ledgerHttp "github.com/nekogravitycat/mall-admin-backend/internal/ledger/http"
	"github.com/nekogravitycat/mall-admin-backend/internal/maintenance"
	maintenanceHttp "github.com/nekogravitycat/mall-admin-backend/internal/maintenance/http"
	"github.com/nekogravitycat/mall-admin-backend/internal/permit"
	permitHttp "github.com/nekogravitycat/mall-admin-backend/internal/permit/http"
	"github.com/nekogravitycat/mall-admin-backend/internal/shop"
	shopHttp "github.com/nekogravitycat/mall-admin-backend/internal/shop/http"
	"github.com/nekogravitycat/mall-admin-backend/internal/task"
	taskHttp "github.com/nekogravitycat/mall-admin-backend/internal/task/http"
)

// Config carries the services the router exposes.
type Config struct {
	IsProduction bool
	ProdOrigins  []string

	ShopService        shop.Service
	ContractService    contract.Service
	PermitService      permit.Service
	TaskService        task.Service
	MaintenanceService maintenance.Service
	LedgerService      ledger.Service
	JWTManager         *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global Middleware:
	// - Logger: Logs request information to the console.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(gin.Logger(), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction {
		corsConfig.AllowOrigins = cfg.ProdOrigins
	} else {
		corsConfig.AllowOrigins = []string{
			"http://localhost:8081", // Swagger
			"http://localhost:5173", // Admin UI dev server
		}
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:8081"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		shopHttp.RegisterRoutes(v1, shopHttp.NewHandler(cfg.ShopService), authMiddleware)
		contractHttp.RegisterRoutes(v1, contractHttp.NewHandler(cfg.ContractService), authMiddleware)
		permitHttp.RegisterRoutes(v1, permitHttp.NewHandler(cfg.PermitService), authMiddleware)
		taskHttp.RegisterRoutes(v1, taskHttp.NewHandler(cfg.TaskService), authMiddleware)
		maintenanceHttp.RegisterRoutes(v1, maintenanceHttp.NewHandler(cfg.MaintenanceService), authMiddleware)
		ledgerHttp.RegisterRoutes(v1, ledgerHttp.NewHandler(cfg.LedgerService), authMiddleware)
	}

	return r
}
