package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/retail-oms/internal/domain"
)

type customerKey struct {
	name  string
	phone string
}

type itemKey struct {
	name  string
	price float64
}

type orderRecord struct {
	ID         int64
	CustomerID int64
	Notes      string
	CreatedAt  time.Time
	LineItems  []int64
}

// Store — общее in-memory состояние всех репозиториев: одни и те же таблицы
// клиентов и товаров видны и прямым CRUD-операциям, и сборке заказов.
// Используется для локальной разработки и тестов вместо PostgreSQL.
type Store struct {
	mu sync.RWMutex

	customers     map[int64]domain.Customer
	customerByKey map[customerKey]int64
	items         map[int64]domain.Item
	itemByKey     map[itemKey]int64
	orders        map[int64]orderRecord

	nextCustomerID int64
	nextItemID     int64
	nextOrderID    int64
	lastOrderAt    time.Time

	failHook func(stage string) error
}

// NewStore возвращает пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		customers:     make(map[int64]domain.Customer),
		customerByKey: make(map[customerKey]int64),
		items:         make(map[int64]domain.Item),
		itemByKey:     make(map[itemKey]int64),
		orders:        make(map[int64]orderRecord),
	}
}

// SetFailHook подставляет точку отказа внутрь многошаговых операций.
// Тесты атомарности прерывают запись на заданном шаге и проверяют,
// что состояние не изменилось. В боевом коде хук не используется.
func (s *Store) SetFailHook(hook func(stage string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failHook = hook
}

func (s *Store) failPoint(stage string) error {
	if s.failHook == nil {
		return nil
	}
	return s.failHook(stage)
}

// orderTimestamp выдаёт метку создания заказа, не убывающую между вызовами.
// Вызывающий держит s.mu.
func (s *Store) orderTimestamp() time.Time {
	now := time.Now().UTC()
	if now.Before(s.lastOrderAt) {
		now = s.lastOrderAt
	}
	s.lastOrderAt = now
	return now
}

// stage накапливает мутации многошаговой операции и применяет их одним
// коммитом. До commit ни одна карта Store не меняется, поэтому ошибка на
// любом шаге оставляет хранилище нетронутым. Вызывающий держит s.mu.
type stage struct {
	store *Store

	newCustomers map[int64]domain.Customer
	newItems     map[int64]domain.Item

	nextCustomerID int64
	nextItemID     int64
}

func (s *Store) beginStage() *stage {
	return &stage{
		store:          s,
		newCustomers:   make(map[int64]domain.Customer),
		newItems:       make(map[int64]domain.Item),
		nextCustomerID: s.nextCustomerID,
		nextItemID:     s.nextItemID,
	}
}

// resolveCustomer возвращает существующий id по ключу (name, phone) или
// выделяет новый в рамках стадии.
func (st *stage) resolveCustomer(name, phone string) int64 {
	key := customerKey{name: name, phone: phone}
	if id, ok := st.store.customerByKey[key]; ok {
		return id
	}
	for id, c := range st.newCustomers {
		if c.Name == name && c.Phone == phone {
			return id
		}
	}

	st.nextCustomerID++
	id := st.nextCustomerID
	st.newCustomers[id] = domain.Customer{ID: id, Name: name, Phone: phone}
	return id
}

// resolveItem возвращает существующий id по ключу (name, price) или выделяет
// новый в рамках стадии. Цена сравнивается на точное равенство.
func (st *stage) resolveItem(name string, price float64) int64 {
	key := itemKey{name: name, price: price}
	if id, ok := st.store.itemByKey[key]; ok {
		return id
	}
	for id, it := range st.newItems {
		if it.Name == name && it.Price == price {
			return id
		}
	}

	st.nextItemID++
	id := st.nextItemID
	st.newItems[id] = domain.Item{ID: id, Name: name, Price: price}
	return id
}

func (st *stage) commit() {
	s := st.store
	for id, c := range st.newCustomers {
		s.customers[id] = c
		s.customerByKey[customerKey{name: c.Name, phone: c.Phone}] = id
	}
	for id, it := range st.newItems {
		s.items[id] = it
		s.itemByKey[itemKey{name: it.Name, price: it.Price}] = id
	}
	s.nextCustomerID = st.nextCustomerID
	s.nextItemID = st.nextItemID
}
