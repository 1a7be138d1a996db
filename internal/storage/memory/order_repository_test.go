package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/retail-oms/internal/domain"
)

func TestOrderRepository_CreateResolvesAndReuses(t *testing.T) {
	t.Parallel()

	store := NewStore()
	orders := NewOrderRepository(store)
	ctx := context.Background()

	first, err := orders.Create(ctx, domain.OrderDraft{
		CustomerName:  "Alice",
		CustomerPhone: "555-0101",
		Items: []domain.ItemRef{
			{Name: "Widget", Price: 9.99},
			{Name: "Gadget", Price: 19.99},
		},
	})
	if err != nil {
		t.Fatalf("create first order: %v", err)
	}

	second, err := orders.Create(ctx, domain.OrderDraft{
		CustomerName:  "Alice",
		CustomerPhone: "555-0101",
		Items: []domain.ItemRef{
			{Name: "Widget", Price: 9.99},
			{Name: "Widget", Price: 10.99},
		},
	})
	if err != nil {
		t.Fatalf("create second order: %v", err)
	}

	if first.ID == second.ID {
		t.Fatal("orders must get distinct ids")
	}
	if len(store.customers) != 1 {
		t.Fatalf("same (name, phone) must reuse the customer, got %d rows", len(store.customers))
	}
	// Widget по 9.99 переиспользуется, Widget по 10.99 — новый товар.
	if len(store.items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(store.items))
	}
	if first.Lines[0].ItemID != second.Lines[0].ItemID {
		t.Fatalf("same (name, price) must reuse the item: %d vs %d", first.Lines[0].ItemID, second.Lines[0].ItemID)
	}
	if second.Lines[0].ItemID == second.Lines[1].ItemID {
		t.Fatal("different prices must map to different items")
	}
}

func TestOrderRepository_DuplicateRefsKeepOrder(t *testing.T) {
	t.Parallel()

	store := NewStore()
	orders := NewOrderRepository(store)

	created, err := orders.Create(context.Background(), domain.OrderDraft{
		CustomerName:  "Bob",
		CustomerPhone: "555-0102",
		Items: []domain.ItemRef{
			{Name: "Widget", Price: 9.99},
			{Name: "Gadget", Price: 19.99},
			{Name: "Widget", Price: 9.99},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if len(created.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(created.Lines))
	}
	if created.Lines[0].Name != "Widget" || created.Lines[1].Name != "Gadget" || created.Lines[2].Name != "Widget" {
		t.Fatalf("line order must follow input order: %+v", created.Lines)
	}
	if created.Lines[0].ItemID != created.Lines[2].ItemID {
		t.Fatal("duplicate refs must resolve to the same item")
	}
}

func TestOrderRepository_TimestampsNonDecreasing(t *testing.T) {
	t.Parallel()

	store := NewStore()
	orders := NewOrderRepository(store)
	ctx := context.Background()

	var prev domain.OrderView
	for i := 0; i < 10; i++ {
		created, err := orders.Create(ctx, domain.OrderDraft{
			CustomerName:  "Carol",
			CustomerPhone: "555-0103",
		})
		if err != nil {
			t.Fatalf("create order %d: %v", i, err)
		}
		if i > 0 && created.CreatedAt.Before(prev.CreatedAt) {
			t.Fatalf("timestamps must not decrease: %v then %v", prev.CreatedAt, created.CreatedAt)
		}
		prev = created
	}
}

func TestOrderRepository_Replace(t *testing.T) {
	t.Parallel()

	store := NewStore()
	orders := NewOrderRepository(store)
	ctx := context.Background()

	created, err := orders.Create(ctx, domain.OrderDraft{
		CustomerName:  "Dave",
		CustomerPhone: "555-0104",
		Notes:         "old",
		Items:         []domain.ItemRef{{Name: "Widget", Price: 9.99}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	replaced, err := orders.Replace(ctx, created.ID, domain.OrderDraft{
		CustomerName:  "Erin",
		CustomerPhone: "555-0105",
		Notes:         "new",
		Items: []domain.ItemRef{
			{Name: "Sprocket", Price: 4.50},
			{Name: "Gadget", Price: 19.99},
		},
	})
	if err != nil {
		t.Fatalf("replace order: %v", err)
	}

	if replaced.CustomerName != "Erin" || replaced.Notes != "new" {
		t.Fatalf("header must be fully replaced: %+v", replaced)
	}
	if len(replaced.Lines) != 2 || replaced.Lines[0].Name != "Sprocket" {
		t.Fatalf("lines must be fully replaced: %+v", replaced.Lines)
	}
	if !replaced.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("created_at must not change on replace")
	}

	if _, err := orders.Replace(ctx, created.ID+100, domain.OrderDraft{
		CustomerName:  "Nobody",
		CustomerPhone: "555-0000",
	}); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_Delete(t *testing.T) {
	t.Parallel()

	store := NewStore()
	orders := NewOrderRepository(store)
	customers := NewCustomerRepository(store)
	ctx := context.Background()

	created, err := orders.Create(ctx, domain.OrderDraft{
		CustomerName:  "Frank",
		CustomerPhone: "555-0106",
		Items:         []domain.ItemRef{{Name: "Widget", Price: 9.99}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := orders.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete order: %v", err)
	}
	if _, err := orders.Get(ctx, created.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound after delete, got %v", err)
	}
	if err := orders.Delete(ctx, created.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound on repeated delete, got %v", err)
	}

	// Клиент и товары переживают удаление заказа.
	if _, err := customers.Resolve(ctx, "Frank", "555-0106"); err != nil {
		t.Fatalf("resolve customer after delete: %v", err)
	}
	if len(store.customers) != 1 || len(store.items) != 1 {
		t.Fatalf("customers and items must survive order deletion: %d/%d", len(store.customers), len(store.items))
	}
}

func TestOrderRepository_CreateFailureLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	store := NewStore()
	orders := NewOrderRepository(store)
	ctx := context.Background()

	boom := errors.New("boom")
	calls := 0
	store.SetFailHook(func(stage string) error {
		// Падение на резолве второй позиции: клиент и первый товар уже
		// выделены внутри стадии, но коммита ещё не было.
		if stage == "resolve-item" {
			calls++
			if calls == 2 {
				return boom
			}
		}
		return nil
	})

	_, err := orders.Create(ctx, domain.OrderDraft{
		CustomerName:  "Grace",
		CustomerPhone: "555-0107",
		Items: []domain.ItemRef{
			{Name: "Widget", Price: 9.99},
			{Name: "Gadget", Price: 19.99},
		},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}

	if len(store.customers) != 0 || len(store.items) != 0 || len(store.orders) != 0 {
		t.Fatalf("failed create must not leave partial state: %d/%d/%d",
			len(store.customers), len(store.items), len(store.orders))
	}
}

func TestOrderRepository_ReplaceFailureKeepsOldOrder(t *testing.T) {
	t.Parallel()

	store := NewStore()
	orders := NewOrderRepository(store)
	ctx := context.Background()

	created, err := orders.Create(ctx, domain.OrderDraft{
		CustomerName:  "Heidi",
		CustomerPhone: "555-0108",
		Items:         []domain.ItemRef{{Name: "Widget", Price: 9.99}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	boom := errors.New("boom")
	store.SetFailHook(func(stage string) error {
		if stage == "update-order" {
			return boom
		}
		return nil
	})

	if _, err := orders.Replace(ctx, created.ID, domain.OrderDraft{
		CustomerName:  "Ivan",
		CustomerPhone: "555-0109",
		Items:         []domain.ItemRef{{Name: "Sprocket", Price: 4.50}},
	}); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}

	store.SetFailHook(nil)
	got, err := orders.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get order after failed replace: %v", err)
	}
	if got.CustomerName != "Heidi" || len(got.Lines) != 1 || got.Lines[0].Name != "Widget" {
		t.Fatalf("failed replace must keep the old order: %+v", got)
	}
}

func TestCustomerRepository_UpdateDuplicateKey(t *testing.T) {
	t.Parallel()

	store := NewStore()
	customers := NewCustomerRepository(store)
	ctx := context.Background()

	a, err := customers.Create(ctx, "Alice", "555-0101")
	if err != nil {
		t.Fatalf("create customer a: %v", err)
	}
	b, err := customers.Create(ctx, "Bob", "555-0102")
	if err != nil {
		t.Fatalf("create customer b: %v", err)
	}

	if _, err := customers.Update(ctx, b.ID, "Alice", "555-0101"); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	// Обновление на собственный ключ не конфликт.
	if _, err := customers.Update(ctx, a.ID, "Alice", "555-0101"); err != nil {
		t.Fatalf("self update must succeed: %v", err)
	}
}

func TestItemRepository_ResolveExactPrice(t *testing.T) {
	t.Parallel()

	store := NewStore()
	items := NewItemRepository(store)
	ctx := context.Background()

	a, err := items.Resolve(ctx, "Widget", 9.99)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	same, err := items.Resolve(ctx, "Widget", 9.99)
	if err != nil {
		t.Fatalf("resolve same: %v", err)
	}
	other, err := items.Resolve(ctx, "Widget", 9.990001)
	if err != nil {
		t.Fatalf("resolve close price: %v", err)
	}

	if a != same {
		t.Fatalf("exact same price must reuse item: %d vs %d", a, same)
	}
	if a == other {
		t.Fatal("close but unequal price must create a new item")
	}
}
