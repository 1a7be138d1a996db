package domain

import (
	"context"
	"time"
)

// CustomerRepository описывает требования к хранилищу клиентов.
type CustomerRepository interface {
	// Get возвращает клиента по идентификатору или ErrCustomerNotFound.
	Get(ctx context.Context, id int64) (Customer, error)
	// Create вставляет нового клиента и возвращает его с присвоенным ID.
	Create(ctx context.Context, name, phone string) (Customer, error)
	// Update перезаписывает имя и телефон клиента.
	Update(ctx context.Context, id int64, name, phone string) (Customer, error)
	// Delete удаляет клиента или возвращает ErrCustomerNotFound.
	Delete(ctx context.Context, id int64) error
	// Resolve возвращает идентификатор существующего клиента с таким
	// (name, phone) или создаёт нового. Атомарен относительно конкурентных
	// вызовов с тем же ключом: дубликат строки невозможен.
	Resolve(ctx context.Context, name, phone string) (int64, error)
}

// ItemRepository описывает требования к хранилищу товаров.
type ItemRepository interface {
	// Get возвращает товар по идентификатору или ErrItemNotFound.
	Get(ctx context.Context, id int64) (Item, error)
	// Create вставляет новый товар и возвращает его с присвоенным ID.
	Create(ctx context.Context, name string, price float64) (Item, error)
	// Update перезаписывает имя и цену товара.
	Update(ctx context.Context, id int64, name string, price float64) (Item, error)
	// Delete удаляет товар или возвращает ErrItemNotFound.
	Delete(ctx context.Context, id int64) error
	// Resolve возвращает идентификатор существующего товара с таким
	// (name, price) или создаёт новый; цена сравнивается без округления.
	Resolve(ctx context.Context, name string, price float64) (int64, error)
}

// OrderRepository описывает хранилище заказов с их позициями.
// Каждая операция выполняется в собственной транзакции: частично записанный
// заказ никогда не виден читателям.
type OrderRepository interface {
	// Create собирает новый заказ: резолвит клиента и позиции, вставляет
	// шапку и строки одной транзакцией, возвращает перечитанное представление.
	Create(ctx context.Context, draft OrderDraft) (OrderView, error)
	// Get возвращает собранное представление заказа или ErrOrderNotFound.
	Get(ctx context.Context, id int64) (OrderView, error)
	// Replace полностью заменяет клиента, заметки и набор позиций заказа.
	// Время создания не меняется. ErrOrderNotFound до каких-либо изменений.
	Replace(ctx context.Context, id int64, draft OrderDraft) (OrderView, error)
	// Delete удаляет заказ вместе с позициями или возвращает ErrOrderNotFound.
	Delete(ctx context.Context, id int64) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}
