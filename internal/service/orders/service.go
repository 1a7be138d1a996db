package orders

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail-oms/internal/cache"
	"github.com/vladislavdragonenkov/retail-oms/internal/domain"
	"github.com/vladislavdragonenkov/retail-oms/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/retail-oms/internal/metrics"
)

const defaultCacheTTL = 30 * time.Second

// Deps собирает зависимости сервиса заказов. Обязательны только репозитории;
// Outbox, Cache и Metrics опциональны и при nil просто не используются.
type Deps struct {
	Orders    domain.OrderRepository
	Customers domain.CustomerRepository
	Items     domain.ItemRepository
	Outbox    domain.OutboxRepository
	Cache     cache.Cache
	Metrics   *metrics.OrderMetrics
	Logger    *log.Entry

	CacheTTL      time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// Service реализует операции над заказами, клиентами и товарами поверх
// репозиториев: валидация входа, ограниченный retry временных ошибок,
// кеш чтения и постановка событий в transactional outbox.
type Service struct {
	orders    domain.OrderRepository
	customers domain.CustomerRepository
	items     domain.ItemRepository
	outbox    domain.OutboxRepository
	cache     cache.Cache
	metrics   *metrics.OrderMetrics
	logger    *log.Entry

	cacheTTL      time.Duration
	retryAttempts int
	retryDelay    time.Duration
}

// NewService создаёт сервис заказов.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "orders-service")
	}

	cacheTTL := deps.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	retryAttempts := deps.RetryAttempts
	if retryAttempts <= 0 {
		retryAttempts = defaultRetryAttempts
	}
	retryDelay := deps.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	return &Service{
		orders:        deps.Orders,
		customers:     deps.Customers,
		items:         deps.Items,
		outbox:        deps.Outbox,
		cache:         deps.Cache,
		metrics:       deps.Metrics,
		logger:        logger,
		cacheTTL:      cacheTTL,
		retryAttempts: retryAttempts,
		retryDelay:    retryDelay,
	}
}

// CreateOrder валидирует черновик и собирает заказ одной транзакцией
// хранилища. Клиент и товары переиспользуются по ключам дедупликации.
func (s *Service) CreateOrder(ctx context.Context, draft domain.OrderDraft) (domain.OrderView, error) {
	if err := validateDraft(draft); err != nil {
		return domain.OrderView{}, err
	}

	started := time.Now()
	view, err := retryWithBackoff(ctx, s.retryAttempts, s.retryDelay, func(ctx context.Context) (domain.OrderView, error) {
		return s.orders.Create(ctx, draft)
	})
	if err != nil {
		return domain.OrderView{}, err
	}
	s.observe("create", started)

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	s.enqueueOrderEvent(kafka.EventTypeOrderCreated, view)

	return view, nil
}

// GetOrder возвращает собранное представление заказа, при наличии кеша
// сначала пробует его.
func (s *Service) GetOrder(ctx context.Context, id int64) (domain.OrderView, error) {
	if view, ok := s.cachedOrder(ctx, id); ok {
		if s.metrics != nil {
			s.metrics.RecordCacheHit()
		}
		return view, nil
	}
	if s.cache != nil && s.metrics != nil {
		s.metrics.RecordCacheMiss()
	}

	started := time.Now()
	view, err := s.orders.Get(ctx, id)
	if err != nil {
		return domain.OrderView{}, err
	}
	s.observe("get", started)

	s.storeOrderInCache(ctx, view)
	return view, nil
}

// UpdateOrder полностью заменяет содержимое заказа новым черновиком.
func (s *Service) UpdateOrder(ctx context.Context, id int64, draft domain.OrderDraft) (domain.OrderView, error) {
	if err := validateDraft(draft); err != nil {
		return domain.OrderView{}, err
	}

	started := time.Now()
	view, err := retryWithBackoff(ctx, s.retryAttempts, s.retryDelay, func(ctx context.Context) (domain.OrderView, error) {
		return s.orders.Replace(ctx, id, draft)
	})
	if err != nil {
		return domain.OrderView{}, err
	}
	s.observe("update", started)

	s.dropOrderFromCache(ctx, id)
	if s.metrics != nil {
		s.metrics.RecordOrderUpdated()
	}
	s.enqueueOrderEvent(kafka.EventTypeOrderUpdated, view)

	return view, nil
}

// DeleteOrder удаляет заказ вместе с позициями. Клиент и товары остаются.
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	started := time.Now()
	_, err := retryWithBackoff(ctx, s.retryAttempts, s.retryDelay, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.orders.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.observe("delete", started)

	s.dropOrderFromCache(ctx, id)
	if s.metrics != nil {
		s.metrics.RecordOrderDeleted()
	}
	s.enqueueDeletedEvent(id)

	return nil
}

// GetCustomer возвращает клиента по идентификатору.
func (s *Service) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	return s.customers.Get(ctx, id)
}

// CreateCustomer создаёт клиента либо возвращает существующего с тем же
// ключом (name, phone).
func (s *Service) CreateCustomer(ctx context.Context, name, phone string) (domain.Customer, error) {
	if name == "" {
		return domain.Customer{}, domain.ErrCustomerNameRequired
	}
	if phone == "" {
		return domain.Customer{}, domain.ErrCustomerPhoneRequired
	}
	return s.customers.Create(ctx, name, phone)
}

// UpdateCustomer перезаписывает имя и телефон клиента.
func (s *Service) UpdateCustomer(ctx context.Context, id int64, name, phone string) (domain.Customer, error) {
	if name == "" {
		return domain.Customer{}, domain.ErrCustomerNameRequired
	}
	if phone == "" {
		return domain.Customer{}, domain.ErrCustomerPhoneRequired
	}
	return s.customers.Update(ctx, id, name, phone)
}

// DeleteCustomer удаляет клиента.
func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	return s.customers.Delete(ctx, id)
}

// GetItem возвращает товар по идентификатору.
func (s *Service) GetItem(ctx context.Context, id int64) (domain.Item, error) {
	return s.items.Get(ctx, id)
}

// CreateItem создаёт товар либо возвращает существующий с тем же ключом
// (name, price).
func (s *Service) CreateItem(ctx context.Context, name string, price float64) (domain.Item, error) {
	if name == "" {
		return domain.Item{}, domain.ErrItemNameRequired
	}
	if price < 0 {
		return domain.Item{}, domain.ErrItemPriceNegative
	}
	return s.items.Create(ctx, name, price)
}

// UpdateItem перезаписывает имя и цену товара.
func (s *Service) UpdateItem(ctx context.Context, id int64, name string, price float64) (domain.Item, error) {
	if name == "" {
		return domain.Item{}, domain.ErrItemNameRequired
	}
	if price < 0 {
		return domain.Item{}, domain.ErrItemPriceNegative
	}
	return s.items.Update(ctx, id, name, price)
}

// DeleteItem удаляет товар.
func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	return s.items.Delete(ctx, id)
}

func validateDraft(draft domain.OrderDraft) error {
	if errs := draft.Validate(); len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (s *Service) observe(operation string, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordOperationDuration(operation, time.Since(started))
}

func (s *Service) cacheKey(id int64) string {
	return s.cache.GenerateKey("order", strconv.FormatInt(id, 10))
}

func (s *Service) cachedOrder(ctx context.Context, id int64) (domain.OrderView, bool) {
	if s.cache == nil {
		return domain.OrderView{}, false
	}

	raw, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		s.logger.WithError(err).WithField("order_id", id).Warn("order cache read failed")
		return domain.OrderView{}, false
	}
	if raw == "" {
		return domain.OrderView{}, false
	}

	var view domain.OrderView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		s.logger.WithError(err).WithField("order_id", id).Warn("order cache entry is corrupted")
		return domain.OrderView{}, false
	}
	return view, true
}

func (s *Service) storeOrderInCache(ctx context.Context, view domain.OrderView) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(view)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", view.ID).Warn("order cache marshal failed")
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(view.ID), string(raw), s.cacheTTL); err != nil {
		s.logger.WithError(err).WithField("order_id", view.ID).Warn("order cache write failed")
	}
}

func (s *Service) dropOrderFromCache(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cacheKey(id)); err != nil {
		s.logger.WithError(err).WithField("order_id", id).Warn("order cache invalidation failed")
	}
}

// enqueueOrderEvent ставит событие заказа в outbox. Ошибка постановки не
// роняет уже зафиксированную операцию, только логируется.
func (s *Service) enqueueOrderEvent(eventType kafka.EventType, view domain.OrderView) {
	if s.outbox == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, view.ID, view.CustomerName, view.CustomerPhone, len(view.Lines))
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", view.ID).Warn("marshal order event failed")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   strconv.FormatInt(view.ID, 10),
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("order_id", view.ID).Warn("enqueue order event failed")
		return
	}

	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}

func (s *Service) enqueueDeletedEvent(id int64) {
	if s.outbox == nil {
		return
	}

	event := kafka.NewOrderEvent(kafka.EventTypeOrderDeleted, id, "", "", 0)
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", id).Warn("marshal order event failed")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   strconv.FormatInt(id, 10),
		EventType:     string(kafka.EventTypeOrderDeleted),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("order_id", id).Warn("enqueue order event failed")
		return
	}

	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}
