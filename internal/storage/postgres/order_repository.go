package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/retail-oms/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Create собирает заказ одной транзакцией: резолв клиента, вставка шапки,
// резолв и вставка позиций в порядке входного списка. При любой ошибке
// транзакция откатывается целиком, включая строки, созданные резолверами.
func (r *orderRepository) Create(ctx context.Context, draft domain.OrderDraft) (view domain.OrderView, err error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.OrderView{}, classify(fmt.Errorf("begin tx: %w", err))
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	customerID, err := resolveCustomer(ctx, tx, draft.CustomerName, draft.CustomerPhone)
	if err != nil {
		return domain.OrderView{}, err
	}

	var orderID int64
	if draft.CreatedAt.IsZero() {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO orders (customer_id, notes)
			VALUES ($1, $2)
			RETURNING id
		`, customerID, draft.Notes).Scan(&orderID)
	} else {
		// Явное время вставки использует только загрузчик сидов.
		err = tx.QueryRowContext(ctx, `
			INSERT INTO orders (customer_id, notes, created_at)
			VALUES ($1, $2, $3)
			RETURNING id
		`, customerID, draft.Notes, draft.CreatedAt.UTC()).Scan(&orderID)
	}
	if err != nil {
		return domain.OrderView{}, classify(fmt.Errorf("insert order: %w", err))
	}

	if err = insertOrderLines(ctx, tx, orderID, draft.Items); err != nil {
		return domain.OrderView{}, err
	}

	view, err = readOrder(ctx, tx, orderID)
	if err != nil {
		return domain.OrderView{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.OrderView{}, classify(fmt.Errorf("commit create order: %w", err))
	}

	return view, nil
}

// Get читает заказ в собственной read-only транзакции уровня repeatable
// read: шапка и позиции берутся из одного снимка, конкурентный Replace
// между двумя SELECT не подмешает чужие позиции.
func (r *orderRepository) Get(ctx context.Context, id int64) (domain.OrderView, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return domain.OrderView{}, classify(fmt.Errorf("begin tx: %w", err))
	}

	view, err := readOrder(ctx, tx, id)
	if err != nil {
		_ = tx.Rollback()
		return domain.OrderView{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.OrderView{}, classify(fmt.Errorf("commit get order: %w", err))
	}

	return view, nil
}

// Replace полностью заменяет клиента, заметки и набор позиций заказа.
// SELECT ... FOR UPDATE в начале сериализует конкурентные записи по одному
// заказу, поэтому окно между удалением и вставкой позиций снаружи не видно.
func (r *orderRepository) Replace(ctx context.Context, id int64, draft domain.OrderDraft) (view domain.OrderView, err error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.OrderView{}, classify(fmt.Errorf("begin tx: %w", err))
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lockedID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OrderView{}, domain.ErrOrderNotFound
		}
		return domain.OrderView{}, classify(fmt.Errorf("lock order: %w", err))
	}

	customerID, err := resolveCustomer(ctx, tx, draft.CustomerName, draft.CustomerPhone)
	if err != nil {
		return domain.OrderView{}, err
	}

	// created_at не трогаем: время создания неизменно.
	if _, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET customer_id = $1, notes = $2
		WHERE id = $3
	`, customerID, draft.Notes, id); err != nil {
		return domain.OrderView{}, classify(fmt.Errorf("update order header: %w", err))
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = $1`, id); err != nil {
		return domain.OrderView{}, classify(fmt.Errorf("delete order lines: %w", err))
	}

	if err = insertOrderLines(ctx, tx, id, draft.Items); err != nil {
		return domain.OrderView{}, err
	}

	view, err = readOrder(ctx, tx, id)
	if err != nil {
		return domain.OrderView{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.OrderView{}, classify(fmt.Errorf("commit replace order: %w", err))
	}

	return view, nil
}

// Delete удаляет шапку заказа; позиции снимает ON DELETE CASCADE.
func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return classify(fmt.Errorf("delete order: %w", err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

// insertOrderLines резолвит каждую позицию и вставляет строку связи.
// Повторы входного списка дают повторные строки: количество задаётся
// повторением, line_no фиксирует входной порядок.
func insertOrderLines(ctx context.Context, q querier, orderID int64, items []domain.ItemRef) error {
	for i, item := range items {
		itemID, err := resolveItem(ctx, q, item.Name, item.Price)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, item_id, line_no)
			VALUES ($1, $2, $3)
		`, orderID, itemID, i+1); err != nil {
			return classify(fmt.Errorf("insert order line: %w", err))
		}
	}
	return nil
}

// readOrder собирает представление заказа. Работает и по *sql.DB, и внутри
// открытой транзакции — Create и Replace перечитывают заказ до коммита.
func readOrder(ctx context.Context, q querier, id int64) (domain.OrderView, error) {
	var view domain.OrderView
	err := q.QueryRowContext(ctx, `
		SELECT o.id, o.created_at, c.name, c.phone, COALESCE(o.notes, '')
		FROM orders o
		JOIN customers c ON o.customer_id = c.id
		WHERE o.id = $1
	`, id).Scan(&view.ID, &view.CreatedAt, &view.CustomerName, &view.CustomerPhone, &view.Notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OrderView{}, domain.ErrOrderNotFound
		}
		return domain.OrderView{}, classify(fmt.Errorf("select order header: %w", err))
	}

	rows, err := q.QueryContext(ctx, `
		SELECT l.item_id, i.name, i.price
		FROM order_lines l
		JOIN items i ON l.item_id = i.id
		WHERE l.order_id = $1
		ORDER BY l.line_no
	`, id)
	if err != nil {
		return domain.OrderView{}, classify(fmt.Errorf("load order lines: %w", err))
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ItemID, &line.Name, &line.Price); err != nil {
			return domain.OrderView{}, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return domain.OrderView{}, classify(fmt.Errorf("iterate order lines: %w", err))
	}
	view.Lines = lines

	return view, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
