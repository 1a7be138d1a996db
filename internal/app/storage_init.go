package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail-oms/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/retail-oms/internal/health"
	"github.com/vladislavdragonenkov/retail-oms/internal/storage/memory"
	"github.com/vladislavdragonenkov/retail-oms/internal/storage/postgres"
)

// storageBundle собирает репозитории выбранного драйвера хранилища.
type storageBundle struct {
	Orders    domain.OrderRepository
	Customers domain.CustomerRepository
	Items     domain.ItemRepository
	Outbox    domain.OutboxRepository

	HealthChecks map[string]healthcheck.Checker

	pg *postgres.Store
}

// Close освобождает ресурсы хранилища.
func (b *storageBundle) Close(logger *log.Entry) {
	if b == nil || b.pg == nil {
		return
	}
	if err := b.pg.Close(); err != nil {
		logger.WithError(err).Warn("failed to close postgres store")
	}
}

// initStorage инициализирует хранилище согласно cfg.StorageDriver.
// Пустой драйвер трактуется как in-memory.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*storageBundle, error) {
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		logger.Info("postgres storage initialized")

		return &storageBundle{
			Orders:    postgres.NewOrderRepository(store),
			Customers: postgres.NewCustomerRepository(store),
			Items:     postgres.NewItemRepository(store),
			Outbox:    postgres.NewOutboxRepository(store),
			HealthChecks: map[string]healthcheck.Checker{
				"postgres": healthcheck.NewSimpleChecker("postgres", func() error {
					pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					return store.Ping(pingCtx)
				}),
			},
			pg: store,
		}, nil
	case StorageDriverMemory, "":
		store := memory.NewStore()
		logger.Info("in-memory storage initialized")

		return &storageBundle{
			Orders:       memory.NewOrderRepository(store),
			Customers:    memory.NewCustomerRepository(store),
			Items:        memory.NewItemRepository(store),
			Outbox:       memory.NewOutboxRepository(),
			HealthChecks: map[string]healthcheck.Checker{},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}
