package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/retail-oms/internal/domain"
)

func TestOrderRepository_PostgresCreateAndGet(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	ctx := context.Background()
	draft := domain.OrderDraft{
		CustomerName:  "Alice",
		CustomerPhone: "+1-202-555-0101",
		Notes:         "leave at the door",
		Items: []domain.ItemRef{
			{Name: "Widget", Price: 9.99},
			{Name: "Gadget", Price: 19.99},
			{Name: "Widget", Price: 9.99},
		},
	}

	created, err := repo.Create(ctx, draft)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned order id")
	}
	if created.CustomerName != "Alice" || created.CustomerPhone != "+1-202-555-0101" {
		t.Fatalf("unexpected customer in view: %+v", created)
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set by the database")
	}

	got, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if len(got.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(got.Lines))
	}
	// Повтор позиции во входе даёт отдельную строку с тем же item_id.
	if got.Lines[0].ItemID != got.Lines[2].ItemID {
		t.Fatalf("duplicate item refs must resolve to one item: %+v", got.Lines)
	}
	if got.Lines[0].Name != "Widget" || got.Lines[1].Name != "Gadget" || got.Lines[2].Name != "Widget" {
		t.Fatalf("line order must follow input order: %+v", got.Lines)
	}
	if got.Notes != "leave at the door" {
		t.Fatalf("unexpected notes: %q", got.Notes)
	}
}

func TestOrderRepository_PostgresResolverReuse(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	customers := NewCustomerRepository(store)
	items := NewItemRepository(store)

	ctx := context.Background()
	draft := domain.OrderDraft{
		CustomerName:  "Bob",
		CustomerPhone: "+1-202-555-0102",
		Items:         []domain.ItemRef{{Name: "Widget", Price: 9.99}},
	}

	first, err := repo.Create(ctx, draft)
	if err != nil {
		t.Fatalf("create first order: %v", err)
	}
	second, err := repo.Create(ctx, draft)
	if err != nil {
		t.Fatalf("create second order: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("orders must get distinct ids")
	}

	customerID, err := customers.Resolve(ctx, "Bob", "+1-202-555-0102")
	if err != nil {
		t.Fatalf("resolve customer: %v", err)
	}
	again, err := customers.Resolve(ctx, "Bob", "+1-202-555-0102")
	if err != nil {
		t.Fatalf("resolve customer again: %v", err)
	}
	if customerID != again {
		t.Fatalf("resolver must be idempotent: %d vs %d", customerID, again)
	}

	// Та же цена повторно использует товар, другая цена создаёт новый.
	sameID, err := items.Resolve(ctx, "Widget", 9.99)
	if err != nil {
		t.Fatalf("resolve item: %v", err)
	}
	otherID, err := items.Resolve(ctx, "Widget", 10.99)
	if err != nil {
		t.Fatalf("resolve item with other price: %v", err)
	}
	if sameID == otherID {
		t.Fatal("different prices must map to different items")
	}
	if sameID != first.Lines[0].ItemID {
		t.Fatalf("expected resolver to reuse the order line item: %d vs %d", sameID, first.Lines[0].ItemID)
	}
}

func TestOrderRepository_PostgresReplace(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	ctx := context.Background()
	created, err := repo.Create(ctx, domain.OrderDraft{
		CustomerName:  "Carol",
		CustomerPhone: "+1-202-555-0103",
		Notes:         "old notes",
		Items: []domain.ItemRef{
			{Name: "Widget", Price: 9.99},
			{Name: "Gadget", Price: 19.99},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	replaced, err := repo.Replace(ctx, created.ID, domain.OrderDraft{
		CustomerName:  "Dave",
		CustomerPhone: "+1-202-555-0104",
		Notes:         "new notes",
		Items:         []domain.ItemRef{{Name: "Sprocket", Price: 4.50}},
	})
	if err != nil {
		t.Fatalf("replace order: %v", err)
	}

	if replaced.CustomerName != "Dave" || replaced.CustomerPhone != "+1-202-555-0104" {
		t.Fatalf("customer must be fully replaced: %+v", replaced)
	}
	if replaced.Notes != "new notes" {
		t.Fatalf("unexpected notes after replace: %q", replaced.Notes)
	}
	if len(replaced.Lines) != 1 || replaced.Lines[0].Name != "Sprocket" {
		t.Fatalf("lines must be fully replaced: %+v", replaced.Lines)
	}
	if !replaced.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at must not change on replace: %v vs %v", replaced.CreatedAt, created.CreatedAt)
	}

	if _, err := repo.Replace(ctx, created.ID+1000, domain.OrderDraft{
		CustomerName:  "Nobody",
		CustomerPhone: "+1-202-555-0000",
	}); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_PostgresReplaceToEmptyLines(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	ctx := context.Background()
	created, err := repo.Create(ctx, domain.OrderDraft{
		CustomerName:  "Erin",
		CustomerPhone: "+1-202-555-0105",
		Items:         []domain.ItemRef{{Name: "Widget", Price: 9.99}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	replaced, err := repo.Replace(ctx, created.ID, domain.OrderDraft{
		CustomerName:  "Erin",
		CustomerPhone: "+1-202-555-0105",
	})
	if err != nil {
		t.Fatalf("replace with empty items: %v", err)
	}
	if len(replaced.Lines) != 0 {
		t.Fatalf("expected empty lines, got %+v", replaced.Lines)
	}
}

func TestOrderRepository_PostgresDelete(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	customers := NewCustomerRepository(store)

	ctx := context.Background()
	created, err := repo.Create(ctx, domain.OrderDraft{
		CustomerName:  "Frank",
		CustomerPhone: "+1-202-555-0106",
		Items:         []domain.ItemRef{{Name: "Widget", Price: 9.99}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete order: %v", err)
	}
	if _, err := repo.Get(ctx, created.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, created.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound on repeated delete, got %v", err)
	}

	// Клиент переживает удаление своих заказов.
	if _, err := customers.Resolve(ctx, "Frank", "+1-202-555-0106"); err != nil {
		t.Fatalf("customer must survive order deletion: %v", err)
	}

	var lineCount int
	if err := store.DB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM order_lines WHERE order_id = $1
	`, created.ID).Scan(&lineCount); err != nil {
		t.Fatalf("count lines: %v", err)
	}
	if lineCount != 0 {
		t.Fatalf("expected cascade to remove lines, got %d", lineCount)
	}
}

// Get читает шапку и позиции из одного снимка: конкурентный Replace не
// должен дать представление, смешивающее старого клиента с новыми позициями.
func TestOrderRepository_PostgresGetSeesConsistentSnapshot(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	ctx := context.Background()
	states := []domain.OrderDraft{
		{
			CustomerName:  "Alice",
			CustomerPhone: "555-0101",
			Items:         []domain.ItemRef{{Name: "alice-item", Price: 1}},
		},
		{
			CustomerName:  "Bob",
			CustomerPhone: "555-0102",
			Items:         []domain.ItemRef{{Name: "bob-item", Price: 2}},
		},
	}

	created, err := repo.Create(ctx, states[0])
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	itemFor := map[string]string{
		"Alice": "alice-item",
		"Bob":   "bob-item",
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			if _, err := repo.Replace(ctx, created.ID, states[i%2]); err != nil {
				t.Errorf("replace order: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 100; i++ {
		view, err := repo.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("get order: %v", err)
		}
		if len(view.Lines) != 1 {
			t.Fatalf("expected 1 line, got %+v", view.Lines)
		}
		if want := itemFor[view.CustomerName]; view.Lines[0].Name != want {
			t.Fatalf("torn read: customer %s with line %s", view.CustomerName, view.Lines[0].Name)
		}
	}
	<-done
}

func TestOrderRepository_PostgresGetMissing(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	if _, err := repo.Get(context.Background(), 123456789); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_PostgresExplicitCreatedAt(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	ctx := context.Background()
	at := time.Date(2023, time.March, 14, 15, 9, 26, 0, time.UTC)
	created, err := repo.Create(ctx, domain.OrderDraft{
		CustomerName:  "Grace",
		CustomerPhone: "+1-202-555-0107",
		CreatedAt:     at,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !created.CreatedAt.UTC().Equal(at) {
		t.Fatalf("expected explicit created_at %v, got %v", at, created.CreatedAt)
	}
}

func TestCustomerRepository_PostgresCRUD(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCustomerRepository(store)

	ctx := context.Background()
	created, err := repo.Create(ctx, "Heidi", "+1-202-555-0108")
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	got, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if got != created {
		t.Fatalf("unexpected customer: %+v vs %+v", got, created)
	}

	updated, err := repo.Update(ctx, created.ID, "Heidi", "+1-202-555-0109")
	if err != nil {
		t.Fatalf("update customer: %v", err)
	}
	if updated.Phone != "+1-202-555-0109" {
		t.Fatalf("unexpected phone after update: %q", updated.Phone)
	}

	other, err := repo.Create(ctx, "Ivan", "+1-202-555-0110")
	if err != nil {
		t.Fatalf("create second customer: %v", err)
	}
	if _, err := repo.Update(ctx, other.ID, "Heidi", "+1-202-555-0109"); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete customer: %v", err)
	}
	if _, err := repo.Get(ctx, created.ID); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, created.ID); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound on repeated delete, got %v", err)
	}
}

func TestItemRepository_PostgresCRUD(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewItemRepository(store)

	ctx := context.Background()
	created, err := repo.Create(ctx, "Widget", 9.99)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	same, err := repo.Create(ctx, "Widget", 9.99)
	if err != nil {
		t.Fatalf("create same item: %v", err)
	}
	if same.ID != created.ID {
		t.Fatalf("repeated create must reuse the row: %d vs %d", same.ID, created.ID)
	}

	updated, err := repo.Update(ctx, created.ID, "Widget Pro", 12.50)
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.Name != "Widget Pro" || updated.Price != 12.50 {
		t.Fatalf("unexpected item after update: %+v", updated)
	}

	if _, err := repo.Update(ctx, created.ID+1000, "Missing", 1); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound on update missing, got %v", err)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	if _, err := repo.Get(ctx, created.ID); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound after delete, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("expected unique violation for code 23505")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "22001"}) {
		t.Fatal("unexpected unique violation for non-unique code")
	}
	if isUniqueViolation(errors.New("plain error")) {
		t.Fatal("plain error must not be unique violation")
	}
}

func TestClassifyMarksRetryableCodes(t *testing.T) {
	t.Parallel()

	if !domain.IsTransient(classify(&pgconn.PgError{Code: "40001"})) {
		t.Fatal("serialization failure must be transient")
	}
	if !domain.IsTransient(classify(&pgconn.PgError{Code: "40P01"})) {
		t.Fatal("deadlock must be transient")
	}
	if !domain.IsTransient(classify(&pgconn.PgError{Code: "08006"})) {
		t.Fatal("connection failure must be transient")
	}
	if domain.IsTransient(classify(&pgconn.PgError{Code: "23505"})) {
		t.Fatal("unique violation must not be transient")
	}
	if domain.IsTransient(classify(errors.New("plain error"))) {
		t.Fatal("plain error must not be transient")
	}
	if classify(nil) != nil {
		t.Fatal("classify(nil) must be nil")
	}
}
