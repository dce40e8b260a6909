package order

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kwabenadev/chopdesk/internal/api"
	"github.com/kwabenadev/chopdesk/internal/models"
	"github.com/kwabenadev/chopdesk/internal/services/notify"
	"github.com/kwabenadev/chopdesk/internal/storage"
)

type fakeOrderUpstream struct {
	err     error
	calls   int
	lastPay api.OrderPayload
}

func (f *fakeOrderUpstream) CreateOrder(ctx context.Context, payload api.OrderPayload) (*api.OrderRecord, error) {
	f.calls++
	f.lastPay = payload
	if f.err != nil {
		return nil, f.err
	}
	return &api.OrderRecord{ID: "rec-1", OrderStatus: "Pending"}, nil
}

func newNotifier() *notify.Store {
	return notify.NewStore(storage.NewMemoryStore())
}

// Osu to Airport Residential, about 5km apart
var (
	pickupLoc  = &models.Location{Lat: 5.6037, Lng: -0.1870, Address: "Osu"}
	dropoffLoc = &models.Location{Lat: 5.6487, Lng: -0.1870, Address: "Airport Residential"}
)

func fillDetails(w *Workflow) {
	w.SetCustomer("Ama Owusu", "0241234567")
	w.SetPickup(pickupLoc)
	w.SetDropoff(dropoffLoc)
}

func TestWorkflow_EndToEnd(t *testing.T) {
	upstream := &fakeOrderUpstream{}
	notifier := newNotifier()
	w := NewWorkflow(upstream, notifier)

	fillDetails(w)
	if err := w.Next(); err != nil {
		t.Fatalf("Unexpected error advancing to items: %v", err)
	}

	if err := w.AddItem("Jollof Rice", decimal.NewFromInt(20)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := w.UpdateQuantity("Jollof Rice", 1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := w.Next(); err != nil {
		t.Fatalf("Unexpected error advancing to payment: %v", err)
	}
	w.SetPaymentMethod(models.PaymentMomo)

	draft := w.Draft()
	if got := draft.FoodSubtotal(); !got.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected food subtotal 40, got %s", got)
	}
	if !draft.DeliveryPrice.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Expected delivery price 25, got %s", draft.DeliveryPrice)
	}
	if got := draft.TotalPrice(); !got.Equal(decimal.NewFromInt(65)) {
		t.Errorf("Expected total 65, got %s", got)
	}

	var completed *api.OrderRecord
	if err := w.Submit(context.Background(), func(rec *api.OrderRecord) { completed = rec }); err != nil {
		t.Fatalf("Unexpected submit error: %v", err)
	}
	if completed == nil || completed.ID != "rec-1" {
		t.Error("Expected completion callback with the created record")
	}
	if upstream.lastPay.CustomerName != "Ama Owusu" {
		t.Errorf("Expected payload for Ama Owusu, got %s", upstream.lastPay.CustomerName)
	}

	// Exactly one order_created notification, and the workflow is reset
	list := notifier.List()
	if len(list) != 1 || list[0].Type != models.TypeOrderCreated {
		t.Errorf("Expected a single order_created notification, got %v", list)
	}
	if w.Step() != StepDetails {
		t.Error("Expected workflow reset to the details step")
	}
	if len(w.Draft().Items) != 0 {
		t.Error("Expected draft cleared after submission")
	}
}

func TestWorkflow_DetailsGuard(t *testing.T) {
	tests := []struct {
		name  string
		setup func(w *Workflow)
	}{
		{"empty", func(w *Workflow) {}},
		{"missing name", func(w *Workflow) {
			w.SetCustomer("", "0241234567")
			w.SetPickup(pickupLoc)
			w.SetDropoff(dropoffLoc)
		}},
		{"short phone", func(w *Workflow) {
			w.SetCustomer("Ama Owusu", "024123")
			w.SetPickup(pickupLoc)
			w.SetDropoff(dropoffLoc)
		}},
		{"non-numeric phone", func(w *Workflow) {
			w.SetCustomer("Ama Owusu", "02412345ab")
			w.SetPickup(pickupLoc)
			w.SetDropoff(dropoffLoc)
		}},
		{"no dropoff", func(w *Workflow) {
			w.SetCustomer("Ama Owusu", "0241234567")
			w.SetPickup(pickupLoc)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorkflow(&fakeOrderUpstream{}, newNotifier())
			tt.setup(w)
			if err := w.Next(); !errors.Is(err, ErrCustomerDetails) {
				t.Errorf("Expected ErrCustomerDetails, got %v", err)
			}
		})
	}
}

func TestWorkflow_ItemsGuard(t *testing.T) {
	w := NewWorkflow(&fakeOrderUpstream{}, newNotifier())
	fillDetails(w)
	_ = w.Next()

	if err := w.Next(); !errors.Is(err, ErrNoItems) {
		t.Errorf("Expected ErrNoItems, got %v", err)
	}
}

func TestWorkflow_QuantityClampsAtOne(t *testing.T) {
	w := NewWorkflow(&fakeOrderUpstream{}, newNotifier())
	_ = w.AddItem("Waakye", decimal.NewFromInt(15))

	if err := w.UpdateQuantity("Waakye", -5); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := w.Draft().Items[0].Quantity; got != 1 {
		t.Errorf("Expected quantity clamped at 1, got %d", got)
	}
}

func TestWorkflow_UnavailableItem(t *testing.T) {
	w := NewWorkflow(&fakeOrderUpstream{}, newNotifier())
	w.SetCatalog([]api.InventoryItem{
		{Name: "Banku", Available: false},
		{Name: "Kenkey", Available: true},
	})

	if err := w.AddItem("Banku", decimal.NewFromInt(12)); !errors.Is(err, ErrItemUnavailable) {
		t.Errorf("Expected ErrItemUnavailable on add, got %v", err)
	}
	if err := w.AddItem("Kenkey", decimal.NewFromInt(10)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// An already-added line whose item goes out of stock can still be
	// decremented but not incremented
	w.SetCatalog([]api.InventoryItem{{Name: "Kenkey", Available: false}})
	if err := w.UpdateQuantity("Kenkey", 1); !errors.Is(err, ErrItemUnavailable) {
		t.Errorf("Expected ErrItemUnavailable on increment, got %v", err)
	}
	if err := w.UpdateQuantity("Kenkey", -1); err != nil {
		t.Errorf("Expected decrement to succeed, got %v", err)
	}
}

func TestWorkflow_ExtrasAggregateSeparately(t *testing.T) {
	w := NewWorkflow(&fakeOrderUpstream{}, newNotifier())
	egg := models.SelectedItemExtra{Name: "Egg", Price: decimal.NewFromInt(3)}

	_ = w.AddItem("Waakye", decimal.NewFromInt(15))
	_ = w.AddItemWithExtra("Waakye", decimal.NewFromInt(15), egg)
	_ = w.AddItemWithExtra("Waakye", decimal.NewFromInt(15), egg)

	items := w.Draft().Items
	if len(items) != 2 {
		t.Fatalf("Expected 2 distinct lines, got %d", len(items))
	}
	key := CompositeKey("Waakye", "Egg")
	var composite *models.SelectedItem
	for i := range items {
		if items[i].Name == key {
			composite = &items[i]
		}
	}
	if composite == nil {
		t.Fatalf("Expected a line keyed %q", key)
	}
	if composite.Quantity != 2 {
		t.Errorf("Expected composite line merged to quantity 2, got %d", composite.Quantity)
	}
	if !composite.UnitPrice.Equal(decimal.NewFromInt(18)) {
		t.Errorf("Expected unit price 18, got %s", composite.UnitPrice)
	}

	// Removal targets the exact composite key and leaves the base line alone
	if err := w.RemoveItem(key); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	items = w.Draft().Items
	if len(items) != 1 || items[0].Name != "Waakye" {
		t.Errorf("Expected only the base line to remain, got %v", items)
	}
}

func intPtr(n int) *int { return &n }

func modifierGroups() []models.ExtrasGroup {
	return []models.ExtrasGroup{
		{ID: "protein", Title: "Protein", ExtrasType: models.ExtrasSingle, Required: true},
		{ID: "sides", Title: "Sides", ExtrasType: models.ExtrasMultiple, MaxSelection: intPtr(2)},
	}
}

func TestWorkflow_ComposeItemThroughModifierEngine(t *testing.T) {
	w := NewWorkflow(&fakeOrderUpstream{}, newNotifier())
	w.SetExtrasGroups(modifierGroups())

	if err := w.BeginItem("Waakye", decimal.NewFromInt(15)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	fish := models.ExtrasOption{ID: "fish", FoodName: "Fried Fish", FoodPrice: decimal.NewFromInt(8)}
	egg := models.ExtrasOption{ID: "egg", FoodName: "Egg", FoodPrice: decimal.NewFromInt(3)}
	if err := w.SelectExtra("protein", fish, true); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := w.SelectExtra("sides", egg, true); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	key, err := w.ConfirmItem()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if key != "Waakye - Fried Fish, Egg" {
		t.Errorf("Expected composite key, got %q", key)
	}

	items := w.Draft().Items
	if len(items) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(items))
	}
	if !items[0].UnitPrice.Equal(decimal.NewFromInt(26)) {
		t.Errorf("Expected unit price 26, got %s", items[0].UnitPrice)
	}
	if len(items[0].Extras) != 2 {
		t.Errorf("Expected 2 modifiers on the line, got %d", len(items[0].Extras))
	}
}

func TestWorkflow_ConfirmItemEnforcesGroupConstraints(t *testing.T) {
	w := NewWorkflow(&fakeOrderUpstream{}, newNotifier())
	w.SetExtrasGroups(modifierGroups())

	// The required protein group has no selection
	if err := w.BeginItem("Waakye", decimal.NewFromInt(15)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	_, err := w.ConfirmItem()
	var extrasErr *ExtrasValidationError
	if !errors.As(err, &extrasErr) {
		t.Fatalf("Expected ExtrasValidationError, got %v", err)
	}
	if _, ok := extrasErr.Problems["protein"]; !ok {
		t.Errorf("Expected the protein group flagged, got %v", extrasErr.Problems)
	}
	if len(w.Draft().Items) != 0 {
		t.Error("Expected no line added for an invalid selection")
	}
}

func TestWorkflow_SingleGroupReplacesSelection(t *testing.T) {
	w := NewWorkflow(&fakeOrderUpstream{}, newNotifier())
	w.SetExtrasGroups(modifierGroups())

	_ = w.BeginItem("Waakye", decimal.NewFromInt(15))
	fish := models.ExtrasOption{ID: "fish", FoodName: "Fried Fish", FoodPrice: decimal.NewFromInt(8)}
	beef := models.ExtrasOption{ID: "beef", FoodName: "Beef", FoodPrice: decimal.NewFromInt(10)}
	_ = w.SelectExtra("protein", fish, true)
	_ = w.SelectExtra("protein", beef, true)

	key, err := w.ConfirmItem()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if key != "Waakye - Beef" {
		t.Errorf("Expected the later choice to replace the earlier, got %q", key)
	}
}

func TestWorkflow_SyncItemExtrasVersionGating(t *testing.T) {
	w := NewWorkflow(&fakeOrderUpstream{}, newNotifier())
	w.SetExtrasGroups(modifierGroups())
	_ = w.BeginItem("Waakye", decimal.NewFromInt(15))

	fish := models.ExtrasOption{ID: "fish", FoodName: "Fried Fish", FoodPrice: decimal.NewFromInt(8)}
	_ = w.SelectExtra("protein", fish, true)

	// A stale external push must not clobber the local choice
	stale := []models.ExtrasOption{{ID: "beef", FoodName: "Beef", FoodPrice: decimal.NewFromInt(10)}}
	if w.SyncItemExtras("protein", stale, 0) {
		t.Error("Expected stale sync to be rejected")
	}

	key, err := w.ConfirmItem()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if key != "Waakye - Fried Fish" {
		t.Errorf("Expected local choice preserved, got %q", key)
	}
}

func TestWorkflow_BeginItemUnavailable(t *testing.T) {
	w := NewWorkflow(&fakeOrderUpstream{}, newNotifier())
	w.SetCatalog([]api.InventoryItem{{Name: "Banku", Available: false}})
	w.SetExtrasGroups(modifierGroups())

	if err := w.BeginItem("Banku", decimal.NewFromInt(12)); !errors.Is(err, ErrItemUnavailable) {
		t.Errorf("Expected ErrItemUnavailable, got %v", err)
	}
	if _, err := w.ConfirmItem(); !errors.Is(err, ErrNoPendingItem) {
		t.Errorf("Expected ErrNoPendingItem, got %v", err)
	}
}

func TestWorkflow_RemoveUnknownItem(t *testing.T) {
	w := NewWorkflow(&fakeOrderUpstream{}, newNotifier())
	if err := w.RemoveItem("ghost"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("Expected ErrUnknownItem, got %v", err)
	}
}

func TestWorkflow_SubmitFailureKeepsDraft(t *testing.T) {
	upstream := &fakeOrderUpstream{err: errors.New("upstream down")}
	notifier := newNotifier()
	w := NewWorkflow(upstream, notifier)

	fillDetails(w)
	_ = w.Next()
	_ = w.AddItem("Jollof Rice", decimal.NewFromInt(20))
	_ = w.Next()

	if err := w.Submit(context.Background(), nil); err == nil {
		t.Fatal("Expected submit to fail")
	}

	// The draft survives for resubmission and the failure is surfaced as a
	// retry-eligible notification
	if len(w.Draft().Items) != 1 {
		t.Error("Expected draft preserved after failure")
	}
	list := notifier.List()
	if len(list) != 1 || list[0].Type != models.TypeOrderStatus {
		t.Errorf("Expected a single order_status notification, got %v", list)
	}

	upstream.err = nil
	if err := w.Submit(context.Background(), nil); err != nil {
		t.Fatalf("Expected resubmission to succeed, got %v", err)
	}
}

func TestWorkflow_SubmitCancelledContext(t *testing.T) {
	w := NewWorkflow(&fakeOrderUpstream{}, newNotifier())
	fillDetails(w)
	_ = w.Next()
	_ = w.AddItem("Jollof Rice", decimal.NewFromInt(20))
	_ = w.Next()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Submit(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	// The stale result is discarded, not applied
	if len(w.Draft().Items) != 1 {
		t.Error("Expected draft untouched after cancelled submit")
	}
}

func TestBatchWorkflow(t *testing.T) {
	upstream := &fakeOrderUpstream{}
	notifier := newNotifier()
	w := NewBatchWorkflow(upstream, notifier)

	for i, name := range []string{"Ama Owusu", "Kofi Mensah"} {
		w.SetCustomer(name, "0241234567")
		w.SetPickup(pickupLoc)
		w.SetDropoff(dropoffLoc)
		_ = w.Next()
		_ = w.AddItem("Jollof Rice", decimal.NewFromInt(20))
		_ = w.Next()
		if err := w.CompleteCurrent(); err != nil {
			t.Fatalf("Unexpected error completing order %d: %v", i+1, err)
		}
		if w.Step() != StepDetails {
			t.Fatal("Expected loop back to details for the next order")
		}
	}
	if w.CompletedCount() != 2 {
		t.Fatalf("Expected 2 completed orders, got %d", w.CompletedCount())
	}

	if err := w.CompleteBatch(context.Background(), nil); err != nil {
		t.Fatalf("Unexpected batch error: %v", err)
	}
	if upstream.calls != 2 {
		t.Errorf("Expected 2 upstream submissions, got %d", upstream.calls)
	}
	if w.CompletedCount() != 0 {
		t.Error("Expected batch drained after completion")
	}
}

func TestBatchWorkflow_FailedOrdersRemain(t *testing.T) {
	upstream := &fakeOrderUpstream{err: errors.New("upstream down")}
	w := NewBatchWorkflow(upstream, newNotifier())

	fillDetails(w)
	_ = w.Next()
	_ = w.AddItem("Jollof Rice", decimal.NewFromInt(20))
	_ = w.Next()
	if err := w.CompleteCurrent(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := w.CompleteBatch(context.Background(), nil); err == nil {
		t.Fatal("Expected batch error")
	}
	if w.CompletedCount() != 1 {
		t.Error("Expected failed order to remain in the batch")
	}
}

func TestBatchWorkflow_Guards(t *testing.T) {
	w := NewBatchWorkflow(&fakeOrderUpstream{}, newNotifier())
	if err := w.CompleteBatch(context.Background(), nil); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("Expected ErrEmptyBatch, got %v", err)
	}

	single := NewWorkflow(&fakeOrderUpstream{}, newNotifier())
	if err := single.CompleteCurrent(); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Expected ErrWrongStep for non-batch workflow, got %v", err)
	}
}
