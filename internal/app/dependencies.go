package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/storage/memory"
	"github.com/vladislavdragonenkov/ims/internal/storage/postgres"
)

// Dependencies содержит репозитории и хранилище приложения.
type Dependencies struct {
	Products  domain.ProductRepository
	Suppliers domain.SupplierRepository
	Orders    domain.OrderRepository
	Purchases domain.PurchaseOrderRepository
	Audit     domain.AuditOutbox

	// Store заполнен только при PostgreSQL-хранилище.
	Store  *postgres.Store
	Logger *log.Entry
}

// NewDependencies собирает репозитории поверх PostgreSQL, если задан DSN,
// иначе поверх in-memory хранилища.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if cfg.PostgresDSN == "" {
		logger.Info("postgres dsn is not set, using in-memory storage")
		products := memory.NewProductRepository()
		suppliers := memory.NewSupplierRepository()
		return &Dependencies{
			Products:  products,
			Suppliers: suppliers,
			Orders:    memory.NewOrderRepository(products),
			Purchases: memory.NewPurchaseOrderRepository(products, suppliers),
			Audit:     memory.NewAuditOutboxRepository(),
			Logger:    logger,
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	logger.Info("postgres storage initialized")

	return &Dependencies{
		Products:  postgres.NewProductRepository(store),
		Suppliers: postgres.NewSupplierRepository(store),
		Orders:    postgres.NewOrderRepository(store),
		Purchases: postgres.NewPurchaseOrderRepository(store),
		Audit:     postgres.NewAuditOutboxRepository(store),
		Store:     store,
		Logger:    logger,
	}, nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	if d.Store != nil {
		return d.Store.Close()
	}
	return nil
}
