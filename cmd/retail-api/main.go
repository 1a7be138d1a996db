package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail-oms/internal/app"
	"github.com/vladislavdragonenkov/retail-oms/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfig формирует конфигурацию приложения, позволяя переопределить
// настройки через переменные окружения.
func readConfig() app.Config {
	cfg := app.DefaultConfig()
	if v := os.Getenv("RETAIL_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("RETAIL_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("RETAIL_STORAGE_DRIVER"); v != "" {
		cfg.StorageDriver = v
	}
	if v := os.Getenv("RETAIL_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("RETAIL_POSTGRES_AUTO_MIGRATE"); v != "" {
		cfg.PostgresAutoMigrate = parseBool(v, cfg.PostgresAutoMigrate)
	}
	if v := os.Getenv("RETAIL_KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = v
	}
	if v := os.Getenv("RETAIL_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("RETAIL_CACHE_TTL"); v != "" {
		cfg.CacheTTL = parseDuration(v, cfg.CacheTTL)
	}
	if v := os.Getenv("RETAIL_RETRY_ATTEMPTS"); v != "" {
		cfg.RetryAttempts = parseInt(v, cfg.RetryAttempts)
	}
	if v := os.Getenv("RETAIL_RETRY_DELAY"); v != "" {
		cfg.RetryDelay = parseDuration(v, cfg.RetryDelay)
	}
	if v := os.Getenv("RETAIL_OUTBOX_POLL_INTERVAL"); v != "" {
		cfg.OutboxPollInterval = parseDuration(v, cfg.OutboxPollInterval)
	}
	if v := os.Getenv("RETAIL_OUTBOX_BATCH_SIZE"); v != "" {
		cfg.OutboxBatchSize = parseInt(v, cfg.OutboxBatchSize)
	}
	if v := os.Getenv("RETAIL_OUTBOX_MAX_ATTEMPTS"); v != "" {
		cfg.OutboxMaxAttempts = parseInt(v, cfg.OutboxMaxAttempts)
	}
	if v := os.Getenv("RETAIL_OUTBOX_RETRY_DELAY"); v != "" {
		cfg.OutboxRetryDelay = parseDuration(v, cfg.OutboxRetryDelay)
	}
	return cfg
}

func parseBool(raw string, fallback bool) bool {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.WithField("value", raw).Warn("invalid bool value, using default")
		return fallback
	}
	return v
}

func parseInt(raw string, fallback int) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.WithField("value", raw).Warn("invalid int value, using default")
		return fallback
	}
	return v
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.WithField("value", raw).Warn("invalid duration value, using default")
		return fallback
	}
	return v
}

func main() {
	setupLogger()
	cfg := readConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
		"build":        version.String(),
	}).Info("запускаем retail-oms")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("retail-oms остановлен")
}
