package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/retail-oms/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

// querier покрывает общие методы *sql.DB и *sql.Tx, чтобы резолверы и чтение
// заказов работали и отдельной операцией, и внутри открытой транзакции.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{db: store.DB()}
}

func (r *customerRepository) Get(ctx context.Context, id int64) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var customer domain.Customer
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, phone
		FROM customers
		WHERE id = $1
	`, id).Scan(&customer.ID, &customer.Name, &customer.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, classify(fmt.Errorf("select customer: %w", err))
	}

	return customer, nil
}

// Create использует тот же атомарный upsert, что и Resolve: повторная вставка
// существующего ключа (name, phone) возвращает существующую строку, а не дубликат.
func (r *customerRepository) Create(ctx context.Context, name, phone string) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	id, err := resolveCustomer(ctx, r.db, name, phone)
	if err != nil {
		return domain.Customer{}, err
	}

	return domain.Customer{ID: id, Name: name, Phone: phone}, nil
}

func (r *customerRepository) Update(ctx context.Context, id int64, name, phone string) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE customers
		SET name = $1, phone = $2
		WHERE id = $3
	`, name, phone, id)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Customer{}, domain.ErrDuplicateKey
		}
		return domain.Customer{}, classify(fmt.Errorf("update customer: %w", err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Customer{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}

	return domain.Customer{ID: id, Name: name, Phone: phone}, nil
}

func (r *customerRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return classify(fmt.Errorf("delete customer: %w", err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCustomerNotFound
	}

	return nil
}

func (r *customerRepository) Resolve(ctx context.Context, name, phone string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return resolveCustomer(ctx, r.db, name, phone)
}

// resolveCustomer — атомарный insert-or-return-existing по ключу (name, phone).
// DO UPDATE с тем же значением нужен, чтобы RETURNING отдал id и для уже
// существующей строки; гонка look-then-insert здесь невозможна.
func resolveCustomer(ctx context.Context, q querier, name, phone string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO customers (name, phone)
		VALUES ($1, $2)
		ON CONFLICT (name, phone) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name, phone).Scan(&id)
	if err != nil {
		return 0, classify(fmt.Errorf("resolve customer: %w", err))
	}

	return id, nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
