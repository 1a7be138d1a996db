package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/retail-oms/internal/domain"
)

// Коды PostgreSQL, после которых транзакция откатилась целиком и операцию
// безопасно повторить.
const (
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
	pgCodeUniqueViolation      = "23505"
	pgClassConnectionException = "08"
)

// classify помечает временные ошибки хранилища, чтобы граница могла
// ограниченно повторить операцию. Остальные ошибки проходят как есть.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgCodeSerializationFailure ||
			pgErr.Code == pgCodeDeadlockDetected ||
			strings.HasPrefix(pgErr.Code, pgClassConnectionException) {
			return domain.MarkTransient(err)
		}
	}

	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCodeUniqueViolation
	}
	return false
}
