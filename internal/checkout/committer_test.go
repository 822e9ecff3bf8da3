package checkout

import (
	"context"
	"sync"
	"testing"

	"github.com/freshmart/grocery-service/internal/domain"
)

func TestCommitPlacesOrder(t *testing.T) {
	store := newMemStore()
	store.addProduct("prod-1", "Cold Brew", 1099, 100)

	committer := NewCommitter(store)
	basket := []domain.BasketLine{{ProductID: "prod-1", Quantity: 2}}

	order, err := committer.Commit(context.Background(), "user-1", "123 Main St", basket)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if order.ID == "" {
		t.Fatal("expected order id to be assigned")
	}
	if order.Status != domain.OrderStatusCreated {
		t.Fatalf("expected status %s, got %s", domain.OrderStatusCreated, order.Status)
	}
	if order.TotalCents != 2198 {
		t.Fatalf("expected total 2198, got %d", order.TotalCents)
	}
	if len(order.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(order.Lines))
	}
	line := order.Lines[0]
	if line.ProductID != "prod-1" || line.Quantity != 2 || line.UnitPriceCents != 1099 {
		t.Fatalf("unexpected line: %+v", line)
	}

	if got := store.quantity("prod-1"); got != 98 {
		t.Fatalf("expected quantity 98 after commit, got %d", got)
	}

	stored := store.order(order.ID)
	if stored == nil {
		t.Fatal("order not persisted")
	}
	if stored.TotalCents != 2198 {
		t.Fatalf("persisted total mismatch: %d", stored.TotalCents)
	}

	var lineSum int64
	for _, l := range stored.Lines {
		lineSum += int64(l.Quantity) * l.UnitPriceCents
	}
	if lineSum != stored.TotalCents {
		t.Fatalf("total %d does not equal line sum %d", stored.TotalCents, lineSum)
	}
}

func TestCommitRejectsEmptyBasket(t *testing.T) {
	store := newMemStore()
	committer := NewCommitter(store)

	_, err := committer.Commit(context.Background(), "user-1", "123 Main St", nil)

	rej := requireReject(t, err)
	if rej.Kind != KindInvalidQuantity {
		t.Fatalf("expected kind %s, got %s", KindInvalidQuantity, rej.Kind)
	}
	if store.orderCount() != 0 {
		t.Fatal("empty basket must not create an order")
	}
}

func TestCommitRejectsNonPositiveQuantityWithoutSideEffects(t *testing.T) {
	store := newMemStore()
	store.addProduct("prod-1", "Cold Brew", 1099, 5)

	committer := NewCommitter(store)
	basket := []domain.BasketLine{{ProductID: "prod-1", Quantity: 0}}

	_, err := committer.Commit(context.Background(), "user-1", "123 Main St", basket)

	rej := requireReject(t, err)
	if rej.Kind != KindInvalidQuantity {
		t.Fatalf("expected kind %s, got %s", KindInvalidQuantity, rej.Kind)
	}
	if rej.ProductID != "prod-1" {
		t.Fatalf("expected product prod-1, got %s", rej.ProductID)
	}
	if got := store.quantity("prod-1"); got != 5 {
		t.Fatalf("stock must be untouched, got %d", got)
	}
	if store.orderCount() != 0 {
		t.Fatal("rejected basket must not create an order")
	}
}

func TestCommitUnknownProduct(t *testing.T) {
	store := newMemStore()
	committer := NewCommitter(store)

	_, err := committer.Commit(context.Background(), "user-1", "123 Main St",
		[]domain.BasketLine{{ProductID: "prod-missing", Quantity: 1}})

	rej := requireReject(t, err)
	if rej.Kind != KindNotFound {
		t.Fatalf("expected kind %s, got %s", KindNotFound, rej.Kind)
	}
}

func TestCommitRollsBackWholeBasket(t *testing.T) {
	store := newMemStore()
	store.addProduct("prod-1", "Cold Brew", 1099, 10)
	store.addProduct("prod-2", "Frozen Peas", 299, 1)

	committer := NewCommitter(store)
	basket := []domain.BasketLine{
		{ProductID: "prod-1", Quantity: 2},
		{ProductID: "prod-2", Quantity: 5},
	}

	_, err := committer.Commit(context.Background(), "user-1", "123 Main St", basket)

	rej := requireReject(t, err)
	if rej.Kind != KindInsufficientStock {
		t.Fatalf("expected kind %s, got %s", KindInsufficientStock, rej.Kind)
	}
	if rej.Line != 1 {
		t.Fatalf("expected offending line 1, got %d", rej.Line)
	}
	if rej.ProductID != "prod-2" {
		t.Fatalf("expected product prod-2, got %s", rej.ProductID)
	}

	// Line 1 succeeded mid-transaction, but the failure on line 2 makes the
	// whole attempt invisible: stock restored, no order, no lines.
	if got := store.quantity("prod-1"); got != 10 {
		t.Fatalf("expected prod-1 quantity restored to 10, got %d", got)
	}
	if got := store.quantity("prod-2"); got != 1 {
		t.Fatalf("expected prod-2 quantity unchanged at 1, got %d", got)
	}
	if store.orderCount() != 0 {
		t.Fatal("failed commit must not leave an order behind")
	}
}

func TestCommitPriceSnapshot(t *testing.T) {
	store := newMemStore()
	store.addProduct("prod-1", "Cold Brew", 1000, 10)

	committer := NewCommitter(store)

	order, err := committer.Commit(context.Background(), "user-1", "123 Main St",
		[]domain.BasketLine{{ProductID: "prod-1", Quantity: 1}})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	store.setPrice("prod-1", 2000)

	stored := store.order(order.ID)
	if got := stored.Lines[0].UnitPriceCents; got != 1000 {
		t.Fatalf("expected charged price to stay 1000 after price change, got %d", got)
	}
	if stored.TotalCents != 1000 {
		t.Fatalf("expected total to stay 1000 after price change, got %d", stored.TotalCents)
	}
}

func TestCommitConcurrentNoLostUpdate(t *testing.T) {
	store := newMemStore()
	store.addProduct("prod-1", "Cold Brew", 1099, 5)

	committer := NewCommitter(store)
	basket := []domain.BasketLine{{ProductID: "prod-1", Quantity: 3}}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = committer.Commit(context.Background(), "user-1", "123 Main St", basket)
		}(i)
	}
	wg.Wait()

	var successes, shortages int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		default:
			rej := requireReject(t, err)
			if rej.Kind != KindInsufficientStock {
				t.Fatalf("expected kind %s, got %s", KindInsufficientStock, rej.Kind)
			}
			shortages++
		}
	}

	if successes != 1 || shortages != 1 {
		t.Fatalf("expected exactly one success and one shortage, got %d/%d", successes, shortages)
	}
	if got := store.quantity("prod-1"); got != 2 {
		t.Fatalf("expected final quantity 2, got %d", got)
	}
}
