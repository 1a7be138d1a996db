package orders

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/retail-oms/internal/domain"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 25 * time.Millisecond
)

// retryWithBackoff повторяет операцию при временных ошибках хранилища.
// Повторяются только ошибки, помеченные как transient: для них транзакция
// гарантированно откатилась и повтор не задвоит запись. Задержка растёт
// экспоненциально от базовой.
func retryWithBackoff[T any](ctx context.Context, attempts int, baseDelay time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}

	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if !domain.IsTransient(err) || attempt >= attempts {
			break
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return zero, lastErr
}
