package order

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kwabenadev/chopdesk/internal/api"
	"github.com/kwabenadev/chopdesk/internal/models"
	"github.com/kwabenadev/chopdesk/internal/statemachine"
)

type fakeEditUpstream struct {
	editErr   error
	editCalls int
	lastPay   api.OrderPayload

	statusErr error
	fetched   *api.OrderRecord
	fetchErr  error
}

func (f *fakeEditUpstream) EditOrder(ctx context.Context, orderID string, payload api.OrderPayload) (*api.OrderRecord, error) {
	f.editCalls++
	f.lastPay = payload
	if f.editErr != nil {
		return nil, f.editErr
	}
	return &api.OrderRecord{ID: orderID, OrderStatus: "Pending"}, nil
}

func (f *fakeEditUpstream) UpdateKitchenStatus(ctx context.Context, orderID, status string) error {
	return f.statusErr
}

func (f *fakeEditUpstream) GetOrder(ctx context.Context, orderID string) (*api.OrderRecord, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.fetched, nil
}

func existingOrder() *api.OrderRecord {
	return &api.OrderRecord{
		ID:            "ord-7",
		CustomerName:  "Ama Owusu",
		CustomerPhone: "0241234567",
		Pickup:        api.OrderPoint{Lat: 5.6037, Lng: -0.1870, Address: "Osu"},
		Dropoff:       api.OrderPoint{Lat: 5.6487, Lng: -0.1870, Address: "Airport Residential"},
		Items: []api.OrderLine{
			{Name: "Jollof Rice", Price: decimal.NewFromInt(20), Quantity: 2},
		},
		DeliveryPrice: decimal.NewFromInt(25),
		OrderStatus:   "Pending",
		PaymentStatus: "Unpaid",
		PaymentMethod: "momo",
	}
}

func TestNewEditor_PrePopulates(t *testing.T) {
	e := NewEditor(existingOrder(), &fakeEditUpstream{}, newNotifier())

	draft := e.Draft()
	if draft.CustomerName != "Ama Owusu" {
		t.Errorf("Expected customer Ama Owusu, got %s", draft.CustomerName)
	}
	if len(draft.Items) != 1 || draft.Items[0].Quantity != 2 {
		t.Errorf("Expected existing line carried over, got %v", draft.Items)
	}
	if !e.TotalPrice().Equal(decimal.NewFromInt(65)) {
		t.Errorf("Expected total 65, got %s", e.TotalPrice())
	}
}

func TestEditor_LocationChangeRecomputesDelivery(t *testing.T) {
	e := NewEditor(existingOrder(), &fakeEditUpstream{}, newNotifier())

	// Move the dropoff next door to the pickup; the short-haul flat fee
	// applies
	e.SetDropoff(&models.Location{Lat: 5.6047, Lng: -0.1870, Address: "Osu"})
	if got := e.Draft().DeliveryPrice; !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected delivery price 10, got %s", got)
	}

	// Clearing a location clears the derived price entirely
	e.SetPickup(nil)
	if got := e.Draft().DeliveryPrice; !got.IsZero() {
		t.Errorf("Expected delivery price cleared, got %s", got)
	}
}

func TestEditor_SetItemQuantityClamps(t *testing.T) {
	e := NewEditor(existingOrder(), &fakeEditUpstream{}, newNotifier())

	if err := e.SetItemQuantity("Jollof Rice", 0); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := e.Draft().Items[0].Quantity; got != 1 {
		t.Errorf("Expected quantity clamped at 1, got %d", got)
	}
	if err := e.SetItemQuantity("ghost", 3); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("Expected ErrUnknownItem, got %v", err)
	}
}

func TestEditor_SaveFailureKeepsEdits(t *testing.T) {
	upstream := &fakeEditUpstream{editErr: errors.New("upstream down")}
	notifier := newNotifier()
	e := NewEditor(existingOrder(), upstream, notifier)
	e.SetCustomer("Akosua Mensah", "0209876543")

	if _, err := e.Save(context.Background()); err == nil {
		t.Fatal("Expected save to fail")
	}
	if e.Draft().CustomerName != "Akosua Mensah" {
		t.Error("Expected edits preserved after failed save")
	}
	list := notifier.List()
	if len(list) != 1 || list[0].Type != models.TypeOrderStatus {
		t.Errorf("Expected a retry notification, got %v", list)
	}

	upstream.editErr = nil
	if _, err := e.Save(context.Background()); err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if upstream.lastPay.CustomerName != "Akosua Mensah" {
		t.Errorf("Expected edited payload, got %s", upstream.lastPay.CustomerName)
	}
}

func TestEditor_SaveEmitsEditedNotification(t *testing.T) {
	notifier := newNotifier()
	e := NewEditor(existingOrder(), &fakeEditUpstream{}, notifier)
	e.SetPaymentStatus("Paid")

	if _, err := e.Save(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	list := notifier.List()
	if len(list) != 1 || list[0].Type != models.TypeOrderEdited {
		t.Errorf("Expected order_edited notification, got %v", list)
	}
}

func TestEditor_SaveTransmitsStatusOverrides(t *testing.T) {
	upstream := &fakeEditUpstream{}
	e := NewEditor(existingOrder(), upstream, newNotifier())
	e.SetOrderStatus("Cancelled")
	e.SetPaymentStatus("Paid")

	if _, err := e.Save(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if upstream.lastPay.OrderStatus != "Cancelled" {
		t.Errorf("Expected order status Cancelled in payload, got %q", upstream.lastPay.OrderStatus)
	}
	if !upstream.lastPay.Paid {
		t.Error("Expected payment override carried in payload")
	}
}

func TestEditor_AdvanceKitchenStatus(t *testing.T) {
	upstream := &fakeEditUpstream{}
	e := NewEditor(existingOrder(), upstream, newNotifier())

	if err := e.AdvanceKitchenStatus(context.Background(), statemachine.StatusPreparing); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if status, _ := e.OrderStatus(); status != "Preparing" {
		t.Errorf("Expected status Preparing, got %s", status)
	}

	// An illegal jump never reaches the upstream
	if err := e.AdvanceKitchenStatus(context.Background(), statemachine.StatusCompleted); err == nil {
		t.Error("Expected illegal transition to be rejected")
	}
}

func TestEditor_AmbiguousStatusReplyReconciled(t *testing.T) {
	upstream := &fakeEditUpstream{
		statusErr: api.ErrAmbiguousResponse,
		fetched:   &api.OrderRecord{ID: "ord-7", OrderStatus: "Preparing"},
	}
	e := NewEditor(existingOrder(), upstream, newNotifier())

	if err := e.AdvanceKitchenStatus(context.Background(), statemachine.StatusPreparing); err != nil {
		t.Fatalf("Expected reconciliation to succeed, got %v", err)
	}
	if status, _ := e.OrderStatus(); status != "Preparing" {
		t.Errorf("Expected status Preparing, got %s", status)
	}
}

func TestEditor_AmbiguousStatusReplyStandsWhenUnconfirmed(t *testing.T) {
	upstream := &fakeEditUpstream{
		statusErr: api.ErrAmbiguousResponse,
		fetched:   &api.OrderRecord{ID: "ord-7", OrderStatus: "Pending"},
	}
	e := NewEditor(existingOrder(), upstream, newNotifier())

	if err := e.AdvanceKitchenStatus(context.Background(), statemachine.StatusPreparing); err == nil {
		t.Fatal("Expected error when re-fetch does not confirm the update")
	}
	if status, _ := e.OrderStatus(); status != "Pending" {
		t.Errorf("Expected status unchanged, got %s", status)
	}
}
