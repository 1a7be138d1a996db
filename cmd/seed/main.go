package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail-oms/internal/seed"
	"github.com/vladislavdragonenkov/retail-oms/internal/storage/postgres"
)

const defaultTimeout = 5 * time.Minute

func main() {
	var (
		dsn       string
		customers string
		items     string
		orders    string
		migrate   bool
	)

	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: RETAIL_POSTGRES_DSN)")
	flag.StringVar(&customers, "customers", "customers.json", "path to customers file, empty to skip")
	flag.StringVar(&items, "items", "items.json", "path to items file, empty to skip")
	flag.StringVar(&orders, "orders", "example_orders.json", "path to example orders file, empty to skip")
	flag.BoolVar(&migrate, "migrate", true, "apply migrations before loading")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	logger := log.WithField("component", "seed")

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("RETAIL_POSTGRES_DSN"))
	}
	if dsn == "" {
		logger.Fatal("RETAIL_POSTGRES_DSN (or -dsn) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		logger.WithError(err).Fatal("open postgres store")
	}
	defer store.Close()

	if migrate {
		if err := store.EnsureSchema(ctx); err != nil {
			logger.WithError(err).Fatal("apply migrations")
		}
	}

	loader := seed.NewLoader(seed.Repos{
		Customers: postgres.NewCustomerRepository(store),
		Items:     postgres.NewItemRepository(store),
		Orders:    postgres.NewOrderRepository(store),
	}, logger)

	stats, err := loader.Load(ctx, seed.Files{
		Customers: customers,
		Items:     items,
		Orders:    orders,
	})
	if err != nil {
		logger.WithError(err).Fatal("seed load failed")
	}

	logger.WithFields(log.Fields{
		"customers": stats.Customers,
		"items":     stats.Items,
		"orders":    stats.Orders,
	}).Info("done")
}
