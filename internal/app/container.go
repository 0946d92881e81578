package app

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/mall-admin-backend/internal/api"
	"github.com/nekogravitycat/mall-admin-backend/internal/approval"
	"github.com/nekogravitycat/mall-admin-backend/internal/auth"
	"github.com/nekogravitycat/mall-admin-backend/internal/contract"
	"github.com/nekogravitycat/mall-admin-backend/internal/db"
	"github.com/nekogravitycat/mall-admin-backend/internal/ledger"
	"github.com/nekogravitycat/mall-admin-backend/internal/maintenance"
	"github.com/nekogravitycat/mall-admin-backend/internal/notify"
	"github.com/nekogravitycat/mall-admin-backend/internal/permit"
	"github.com/nekogravitycat/mall-admin-backend/internal/shop"
	"github.com/nekogravitycat/mall-admin-backend/internal/status"
	"github.com/nekogravitycat/mall-admin-backend/internal/task"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  []string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration

	// RabbitURL selects the AMQP notifier; empty means log only.
	RabbitURL      string
	NotifyExchange string
	NotifyTimeout  time.Duration
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
	Dispatcher *notify.Dispatcher

	closeSender func() error
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	txManager := db.NewTxManager(cfg.DBPool)
	deriver := status.NewDeriver()

	sender, closeSender, err := newSender(cfg)
	if err != nil {
		return nil, err
	}
	dispatcher := notify.NewDispatcher(sender, cfg.NotifyTimeout)

	// Ledger Module
	ledgerRepo := ledger.NewPgxRepository(cfg.DBPool)
	ledgerService := ledger.NewService(ledgerRepo, txManager, nil)

	// Shop Module
	shopRepo := shop.NewPgxRepository(cfg.DBPool)
	shopService := shop.NewService(shopRepo)

	// Contract Module
	contractRepo := contract.NewPgxRepository(cfg.DBPool)
	contractService := contract.NewService(contractRepo, ledgerService, deriver, txManager, dispatcher)

	// Permit Module
	permitRepo := permit.NewPgxRepository(cfg.DBPool)
	gate := approval.NewGate(approval.DefaultParties...)
	permitService := permit.NewService(permitRepo, gate, ledgerService, txManager, dispatcher, time.Now)

	// Task Module
	taskRepo := task.NewPgxRepository(cfg.DBPool)
	taskService := task.NewService(taskRepo, ledgerService, deriver, txManager, dispatcher)

	// Maintenance Module
	maintenanceRepo := maintenance.NewPgxRepository(cfg.DBPool)
	maintenanceService := maintenance.NewService(maintenanceRepo, ledgerService, deriver, txManager, dispatcher)

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:    cfg.IsProduction,
		ProdOrigins:     cfg.ProdOrigins,
		ShopService:        shopService,
		ContractService:    contractService,
		PermitService:      permitService,
		TaskService:        taskService,
		MaintenanceService: maintenanceService,
		LedgerService:      ledgerService,
		JWTManager:         jwtManager,
	})

	return &Container{
		Router:      router,
		JWTManager:  jwtManager,
		Dispatcher:  dispatcher,
		closeSender: closeSender,
	}, nil
}

// Close waits for in-flight notifications and releases the sender.
func (c *Container) Close() error {
	c.Dispatcher.Wait()
	if c.closeSender != nil {
		return c.closeSender()
	}
	return nil
}

func newSender(cfg Config) (notify.Sender, func() error, error) {
	if cfg.RabbitURL == "" {
		log.Printf("RABBIT_URL not set, notifications are logged only")
		return notify.NewLogSender(), nil, nil
	}
	s, err := notify.NewAMQPSender(cfg.RabbitURL, cfg.NotifyExchange)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init amqp notifier: %w", err)
	}
	return s, s.Close, nil
}
