package memory

import (
	"context"

	"github.com/vladislavdragonenkov/retail-oms/internal/domain"
)

// customerRepositoryInMemory — простая in-memory реализация CustomerRepository.
type customerRepositoryInMemory struct {
	store *Store
}

// NewCustomerRepository возвращает in-memory репозиторий клиентов.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepositoryInMemory{store: store}
}

func (r *customerRepositoryInMemory) Get(_ context.Context, id int64) (domain.Customer, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

func (r *customerRepositoryInMemory) Create(_ context.Context, name, phone string) (domain.Customer, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.beginStage()
	id := st.resolveCustomer(name, phone)
	st.commit()

	return s.customers[id], nil
}

func (r *customerRepositoryInMemory) Update(_ context.Context, id int64, name, phone string) (domain.Customer, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}

	key := customerKey{name: name, phone: phone}
	if existingID, exists := s.customerByKey[key]; exists && existingID != id {
		return domain.Customer{}, domain.ErrDuplicateKey
	}

	delete(s.customerByKey, customerKey{name: current.Name, phone: current.Phone})
	updated := domain.Customer{ID: id, Name: name, Phone: phone}
	s.customers[id] = updated
	s.customerByKey[key] = id

	return updated, nil
}

func (r *customerRepositoryInMemory) Delete(_ context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[id]
	if !ok {
		return domain.ErrCustomerNotFound
	}

	delete(s.customers, id)
	delete(s.customerByKey, customerKey{name: customer.Name, phone: customer.Phone})
	return nil
}

func (r *customerRepositoryInMemory) Resolve(_ context.Context, name, phone string) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.beginStage()
	id := st.resolveCustomer(name, phone)
	st.commit()

	return id, nil
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
