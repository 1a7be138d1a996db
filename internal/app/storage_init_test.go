package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestInitStorage_Memory(t *testing.T) {
	logger := log.WithField("component", "test")

	bundle, err := initStorage(context.Background(), Config{StorageDriver: StorageDriverMemory}, logger)
	if err != nil {
		t.Fatalf("initStorage failed: %v", err)
	}
	defer bundle.Close(logger)

	if bundle.Orders == nil {
		t.Error("expected order repository to be initialized")
	}
	if bundle.Customers == nil {
		t.Error("expected customer repository to be initialized")
	}
	if bundle.Items == nil {
		t.Error("expected item repository to be initialized")
	}
	if bundle.Outbox == nil {
		t.Error("expected outbox repository to be initialized")
	}
	if len(bundle.HealthChecks) != 0 {
		t.Errorf("memory storage should have no health checks, got %d", len(bundle.HealthChecks))
	}
}

func TestInitStorage_EmptyDriverFallsBackToMemory(t *testing.T) {
	logger := log.WithField("component", "test")

	bundle, err := initStorage(context.Background(), Config{}, logger)
	if err != nil {
		t.Fatalf("initStorage failed: %v", err)
	}
	defer bundle.Close(logger)

	if bundle.Orders == nil {
		t.Error("expected order repository to be initialized")
	}
}

func TestInitStorage_UnsupportedDriver(t *testing.T) {
	logger := log.WithField("component", "test")

	_, err := initStorage(context.Background(), Config{StorageDriver: "cassandra"}, logger)
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestStorageBundle_CloseNil(t *testing.T) {
	logger := log.WithField("component", "test")

	var bundle *storageBundle
	bundle.Close(logger)

	bundle = &storageBundle{}
	bundle.Close(logger)
}
