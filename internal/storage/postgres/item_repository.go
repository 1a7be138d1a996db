package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/retail-oms/internal/domain"
)

type itemRepository struct {
	db *sql.DB
}

// NewItemRepository создаёт PostgreSQL-реализацию ItemRepository.
func NewItemRepository(store *Store) domain.ItemRepository {
	return &itemRepository{db: store.DB()}
}

func (r *itemRepository) Get(ctx context.Context, id int64) (domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var item domain.Item
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, price
		FROM items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.Price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, classify(fmt.Errorf("select item: %w", err))
	}

	return item, nil
}

// Create использует тот же атомарный upsert, что и Resolve: повторная вставка
// существующего ключа (name, price) возвращает существующую строку.
func (r *itemRepository) Create(ctx context.Context, name string, price float64) (domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	id, err := resolveItem(ctx, r.db, name, price)
	if err != nil {
		return domain.Item{}, err
	}

	return domain.Item{ID: id, Name: name, Price: price}, nil
}

func (r *itemRepository) Update(ctx context.Context, id int64, name string, price float64) (domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET name = $1, price = $2
		WHERE id = $3
	`, name, price, id)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Item{}, domain.ErrDuplicateKey
		}
		return domain.Item{}, classify(fmt.Errorf("update item: %w", err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Item{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.Item{}, domain.ErrItemNotFound
	}

	return domain.Item{ID: id, Name: name, Price: price}, nil
}

func (r *itemRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return classify(fmt.Errorf("delete item: %w", err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrItemNotFound
	}

	return nil
}

func (r *itemRepository) Resolve(ctx context.Context, name string, price float64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return resolveItem(ctx, r.db, name, price)
}

// resolveItem — атомарный insert-or-return-existing по ключу (name, price).
// Цена сравнивается на точное равенство, без допуска и округления.
func resolveItem(ctx context.Context, q querier, name string, price float64) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO items (name, price)
		VALUES ($1, $2)
		ON CONFLICT (name, price) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name, price).Scan(&id)
	if err != nil {
		return 0, classify(fmt.Errorf("resolve item: %w", err))
	}

	return id, nil
}

var _ domain.ItemRepository = (*itemRepository)(nil)
