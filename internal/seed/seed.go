package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail-oms/internal/domain"
)

// Repos собирает репозитории, через которые загружаются сиды. Загрузка идёт
// теми же резолверами, что и живой API: повторный запуск не плодит дублей.
type Repos struct {
	Customers domain.CustomerRepository
	Items     domain.ItemRepository
	Orders    domain.OrderRepository
}

// Files задаёт пути к JSON-файлам с сидами. Пустой путь пропускает файл.
type Files struct {
	Customers string
	Items     string
	Orders    string
}

// Stats — счётчики загруженных записей.
type Stats struct {
	Customers int
	Items     int
	Orders    int
}

type itemSeed struct {
	Price  float64 `json:"price"`
	Orders int     `json:"orders"`
}

type orderSeed struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Notes     string `json:"notes"`
	Timestamp int64  `json:"timestamp"`
	Items     []struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	} `json:"items"`
}

// Loader загружает справочники и примерные заказы из JSON-файлов.
type Loader struct {
	repos  Repos
	logger *log.Entry
}

// NewLoader создаёт загрузчик сидов.
func NewLoader(repos Repos, logger *log.Entry) *Loader {
	if logger == nil {
		logger = log.WithField("component", "seed")
	}
	return &Loader{repos: repos, logger: logger}
}

// Load читает указанные файлы и загружает их содержимое в хранилище.
func (l *Loader) Load(ctx context.Context, files Files) (Stats, error) {
	var stats Stats

	if files.Customers != "" {
		n, err := l.loadCustomers(ctx, files.Customers)
		if err != nil {
			return stats, fmt.Errorf("load customers: %w", err)
		}
		stats.Customers = n
	}

	if files.Items != "" {
		n, err := l.loadItems(ctx, files.Items)
		if err != nil {
			return stats, fmt.Errorf("load items: %w", err)
		}
		stats.Items = n
	}

	if files.Orders != "" {
		n, err := l.loadOrders(ctx, files.Orders)
		if err != nil {
			return stats, fmt.Errorf("load orders: %w", err)
		}
		stats.Orders = n
	}

	l.logger.WithFields(log.Fields{
		"customers": stats.Customers,
		"items":     stats.Items,
		"orders":    stats.Orders,
	}).Info("seed load complete")

	return stats, nil
}

// loadCustomers читает файл формата {"телефон": "имя"}.
func (l *Loader) loadCustomers(ctx context.Context, path string) (int, error) {
	var customers map[string]string
	if err := readJSONFile(path, &customers); err != nil {
		return 0, err
	}

	count := 0
	for phone, name := range customers {
		if _, err := l.repos.Customers.Resolve(ctx, name, phone); err != nil {
			return count, fmt.Errorf("resolve customer %q/%q: %w", name, phone, err)
		}
		count++
	}
	return count, nil
}

// loadItems читает файл формата {"имя": {"price": ..., "orders": ...}}.
// Поле orders — историческая статистика, при загрузке не используется.
func (l *Loader) loadItems(ctx context.Context, path string) (int, error) {
	var items map[string]itemSeed
	if err := readJSONFile(path, &items); err != nil {
		return 0, err
	}

	count := 0
	for name, item := range items {
		if _, err := l.repos.Items.Resolve(ctx, name, item.Price); err != nil {
			return count, fmt.Errorf("resolve item %q: %w", name, err)
		}
		count++
	}
	return count, nil
}

// loadOrders читает массив заказов с явными unix-таймстемпами и проводит их
// через обычный путь сборки заказа.
func (l *Loader) loadOrders(ctx context.Context, path string) (int, error) {
	var seeds []orderSeed
	if err := readJSONFile(path, &seeds); err != nil {
		return 0, err
	}

	count := 0
	for i, seed := range seeds {
		draft := domain.OrderDraft{
			CustomerName:  seed.Name,
			CustomerPhone: seed.Phone,
			Notes:         seed.Notes,
		}
		if seed.Timestamp > 0 {
			draft.CreatedAt = time.Unix(seed.Timestamp, 0).UTC()
		}
		for _, item := range seed.Items {
			draft.Items = append(draft.Items, domain.ItemRef{Name: item.Name, Price: item.Price})
		}

		view, err := l.repos.Orders.Create(ctx, draft)
		if err != nil {
			return count, fmt.Errorf("create order #%d: %w", i, err)
		}
		l.logger.WithFields(log.Fields{
			"order_id": view.ID,
			"lines":    len(view.Lines),
		}).Debug("seeded order")
		count++
	}
	return count, nil
}

func readJSONFile(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
