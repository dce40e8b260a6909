package order

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/kwabenadev/chopdesk/internal/api"
	"github.com/kwabenadev/chopdesk/internal/models"
	"github.com/kwabenadev/chopdesk/internal/services/notify"
	"github.com/kwabenadev/chopdesk/internal/statemachine"
)

// EditUpstream is the slice of the operations API the editor needs
type EditUpstream interface {
	EditOrder(ctx context.Context, orderID string, payload api.OrderPayload) (*api.OrderRecord, error)
	UpdateKitchenStatus(ctx context.Context, orderID, status string) error
	GetOrder(ctx context.Context, orderID string) (*api.OrderRecord, error)
}

// Editor is the edit workflow: pre-populated from an existing order, it
// recomputes the delivery price when locations change and allows direct
// overrides of the order and payment status fields. A failed save keeps the
// user's edits so they can retry.
type Editor struct {
	mu       sync.Mutex
	upstream EditUpstream
	notifier *notify.Store

	orderID       string
	draft         models.OrderDraft
	orderStatus   string
	paymentStatus string
}

// NewEditor builds an editor pre-populated from an upstream order record
func NewEditor(rec *api.OrderRecord, upstream EditUpstream, notifier *notify.Store) *Editor {
	items := make([]models.SelectedItem, 0, len(rec.Items))
	for _, line := range rec.Items {
		items = append(items, models.SelectedItem{
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.Price,
		})
	}
	pickup := models.Location{Lat: rec.Pickup.Lat, Lng: rec.Pickup.Lng, Address: rec.Pickup.Address}
	dropoff := models.Location{Lat: rec.Dropoff.Lat, Lng: rec.Dropoff.Lng, Address: rec.Dropoff.Address}
	return &Editor{
		upstream: upstream,
		notifier: notifier,
		orderID:  rec.ID,
		draft: models.OrderDraft{
			CustomerName:  rec.CustomerName,
			CustomerPhone: rec.CustomerPhone,
			Pickup:        &pickup,
			Dropoff:       &dropoff,
			DeliveryPrice: rec.DeliveryPrice,
			Items:         items,
			Comment:       rec.Comment,
			PaymentMethod: models.PaymentMethod(rec.PaymentMethod),
		},
		orderStatus:   rec.OrderStatus,
		paymentStatus: rec.PaymentStatus,
	}
}

// Draft returns a snapshot of the edited order
func (e *Editor) Draft() models.OrderDraft {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.draft
	d.Items = make([]models.SelectedItem, len(e.draft.Items))
	copy(d.Items, e.draft.Items)
	return d
}

// SetCustomer updates the customer fields
func (e *Editor) SetCustomer(name, phone string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.CustomerName = name
	e.draft.CustomerPhone = phone
}

// SetPickup changes the pickup location and re-derives the delivery price
func (e *Editor) SetPickup(loc *models.Location) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.Pickup = loc
	e.draft.RecomputeDelivery()
}

// SetDropoff changes the dropoff location and re-derives the delivery price
func (e *Editor) SetDropoff(loc *models.Location) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.Dropoff = loc
	e.draft.RecomputeDelivery()
}

// SetItemQuantity overrides a line's quantity, clamped at 1
func (e *Editor) SetItemQuantity(key string, quantity int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if quantity < 1 {
		quantity = 1
	}
	for i := range e.draft.Items {
		if e.draft.Items[i].Name == key {
			e.draft.Items[i].Quantity = quantity
			return nil
		}
	}
	return ErrUnknownItem
}

// SetOrderStatus directly overrides the order status field
func (e *Editor) SetOrderStatus(status string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orderStatus = status
}

// SetPaymentStatus directly overrides the payment status field
func (e *Editor) SetPaymentStatus(status string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paymentStatus = status
}

// Save pushes the full edited payload upstream. Success emits an
// order_edited notification; failure emits a retry-eligible notification
// without discarding the edits.
func (e *Editor) Save(ctx context.Context) (*api.OrderRecord, error) {
	e.mu.Lock()
	payload := buildPayload(e.draft)
	payload.OrderStatus = e.orderStatus
	payload.Paid = e.paymentStatus == "Paid"
	orderID := e.orderID
	customer := e.draft.CustomerName
	e.mu.Unlock()

	rec, err := e.upstream.EditOrder(ctx, orderID, payload)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		e.notifier.Add(models.TypeOrderStatus,
			fmt.Sprintf("Changes to %s's order were not saved. Tap to retry.", customer))
		return nil, fmt.Errorf("order edit failed: %w", err)
	}
	e.notifier.Add(models.TypeOrderEdited, fmt.Sprintf("Order for %s updated", customer))
	return rec, nil
}

// AdvanceKitchenStatus moves the order's kitchen status, validating the
// transition first so an illegal jump never reaches the upstream. An
// ambiguous upstream reply triggers one authoritative re-fetch: the update
// counts as applied only if the fetched record already shows the target
// status.
func (e *Editor) AdvanceKitchenStatus(ctx context.Context, to statemachine.Status) error {
	e.mu.Lock()
	from := statemachine.Status(e.orderStatus)
	orderID := e.orderID
	e.mu.Unlock()

	if err := statemachine.CanTransition(from, to); err != nil {
		return err
	}

	err := e.upstream.UpdateKitchenStatus(ctx, orderID, string(to))
	if errors.Is(err, api.ErrAmbiguousResponse) {
		rec, fetchErr := e.upstream.GetOrder(ctx, orderID)
		if fetchErr != nil || rec.OrderStatus != string(to) {
			return err
		}
		err = nil
	}
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.orderStatus = string(to)
	e.mu.Unlock()
	return nil
}

// OrderStatus reports the current status fields
func (e *Editor) OrderStatus() (orderStatus, paymentStatus string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orderStatus, e.paymentStatus
}

// TotalPrice reports the edited order's current total
func (e *Editor) TotalPrice() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.TotalPrice()
}
