package memory

import (
	"context"

	"github.com/vladislavdragonenkov/retail-oms/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository поверх
// общего Store. Многошаговые операции собирают мутации в стадии и применяют
// их одним коммитом под общим мьютексом, поэтому читатели никогда не видят
// частично записанный заказ.
type orderRepositoryInMemory struct {
	store *Store
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepositoryInMemory{store: store}
}

func (r *orderRepositoryInMemory) Create(_ context.Context, draft domain.OrderDraft) (domain.OrderView, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.beginStage()

	if err := s.failPoint("resolve-customer"); err != nil {
		return domain.OrderView{}, err
	}
	customerID := st.resolveCustomer(draft.CustomerName, draft.CustomerPhone)

	lineItems := make([]int64, 0, len(draft.Items))
	for _, item := range draft.Items {
		if err := s.failPoint("resolve-item"); err != nil {
			return domain.OrderView{}, err
		}
		lineItems = append(lineItems, st.resolveItem(item.Name, item.Price))
	}

	if err := s.failPoint("insert-order"); err != nil {
		return domain.OrderView{}, err
	}

	createdAt := draft.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.orderTimestamp()
	}

	record := orderRecord{
		ID:         s.nextOrderID + 1,
		CustomerID: customerID,
		Notes:      draft.Notes,
		CreatedAt:  createdAt,
		LineItems:  lineItems,
	}

	st.commit()
	s.nextOrderID = record.ID
	s.orders[record.ID] = record

	return s.viewOf(record), nil
}

func (r *orderRepositoryInMemory) Get(_ context.Context, id int64) (domain.OrderView, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.orders[id]
	if !ok {
		return domain.OrderView{}, domain.ErrOrderNotFound
	}
	return s.viewOf(record), nil
}

func (r *orderRepositoryInMemory) Replace(_ context.Context, id int64, draft domain.OrderDraft) (domain.OrderView, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[id]
	if !ok {
		return domain.OrderView{}, domain.ErrOrderNotFound
	}

	st := s.beginStage()

	if err := s.failPoint("resolve-customer"); err != nil {
		return domain.OrderView{}, err
	}
	customerID := st.resolveCustomer(draft.CustomerName, draft.CustomerPhone)

	lineItems := make([]int64, 0, len(draft.Items))
	for _, item := range draft.Items {
		if err := s.failPoint("resolve-item"); err != nil {
			return domain.OrderView{}, err
		}
		lineItems = append(lineItems, st.resolveItem(item.Name, item.Price))
	}

	if err := s.failPoint("update-order"); err != nil {
		return domain.OrderView{}, err
	}

	record := orderRecord{
		ID:         id,
		CustomerID: customerID,
		Notes:      draft.Notes,
		// Время создания неизменно.
		CreatedAt: current.CreatedAt,
		LineItems: lineItems,
	}

	st.commit()
	s.orders[id] = record

	return s.viewOf(record), nil
}

func (r *orderRepositoryInMemory) Delete(_ context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(s.orders, id)
	return nil
}

// viewOf собирает представление заказа из текущего состояния карт.
// Вызывающий держит s.mu.
func (s *Store) viewOf(record orderRecord) domain.OrderView {
	lines := make([]domain.OrderLine, 0, len(record.LineItems))
	for _, itemID := range record.LineItems {
		item := s.items[itemID]
		lines = append(lines, domain.OrderLine{
			ItemID: itemID,
			Name:   item.Name,
			Price:  item.Price,
		})
	}

	customer := s.customers[record.CustomerID]
	return domain.OrderView{
		ID:            record.ID,
		CreatedAt:     record.CreatedAt,
		CustomerName:  customer.Name,
		CustomerPhone: customer.Phone,
		Notes:         record.Notes,
		Lines:         lines,
	}
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
