package memory

import (
	"context"

	"github.com/vladislavdragonenkov/retail-oms/internal/domain"
)

// itemRepositoryInMemory — простая in-memory реализация ItemRepository.
type itemRepositoryInMemory struct {
	store *Store
}

// NewItemRepository возвращает in-memory репозиторий товаров.
func NewItemRepository(store *Store) domain.ItemRepository {
	return &itemRepositoryInMemory{store: store}
}

func (r *itemRepositoryInMemory) Get(_ context.Context, id int64) (domain.Item, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return item, nil
}

func (r *itemRepositoryInMemory) Create(_ context.Context, name string, price float64) (domain.Item, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.beginStage()
	id := st.resolveItem(name, price)
	st.commit()

	return s.items[id], nil
}

func (r *itemRepositoryInMemory) Update(_ context.Context, id int64, name string, price float64) (domain.Item, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}

	key := itemKey{name: name, price: price}
	if existingID, exists := s.itemByKey[key]; exists && existingID != id {
		return domain.Item{}, domain.ErrDuplicateKey
	}

	delete(s.itemByKey, itemKey{name: current.Name, price: current.Price})
	updated := domain.Item{ID: id, Name: name, Price: price}
	s.items[id] = updated
	s.itemByKey[key] = id

	return updated, nil
}

func (r *itemRepositoryInMemory) Delete(_ context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return domain.ErrItemNotFound
	}

	delete(s.items, id)
	delete(s.itemByKey, itemKey{name: item.Name, price: item.Price})
	return nil
}

func (r *itemRepositoryInMemory) Resolve(_ context.Context, name string, price float64) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.beginStage()
	id := st.resolveItem(name, price)
	st.commit()

	return id, nil
}

var _ domain.ItemRepository = (*itemRepositoryInMemory)(nil)
