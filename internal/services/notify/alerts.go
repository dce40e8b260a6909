package notify

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/kwabenadev/chopdesk/internal/api"
	"github.com/kwabenadev/chopdesk/internal/models"
	"github.com/kwabenadev/chopdesk/internal/statemachine"
)

// AlertUpstream is the slice of the operations API the alert surface needs
type AlertUpstream interface {
	FetchPendingOrders(ctx context.Context) ([]api.PendingOrder, error)
	UpdateKitchenStatus(ctx context.Context, orderID, status string) error
	GetOrder(ctx context.Context, orderID string) (*api.OrderRecord, error)
}

// Alerts is the incoming-order surface. Alerts are deduplicated by order id;
// only pending, paid orders are displayable, and the surface reports itself
// empty once none remain.
type Alerts struct {
	mu       sync.RWMutex
	upstream AlertUpstream
	byID     map[string]*models.PendingOrderAlert
}

// NewAlerts creates an empty alert surface
func NewAlerts(upstream AlertUpstream) *Alerts {
	return &Alerts{
		upstream: upstream,
		byID:     make(map[string]*models.PendingOrderAlert),
	}
}

// Upsert records an incoming order. A second alert for the same order id
// refreshes payment status but keeps the original decision and arrival time.
func (a *Alerts) Upsert(order api.PendingOrder) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.byID[order.ID]; ok {
		existing.PaymentStatus = order.PaymentStatus
		existing.Products = order.Products
		return
	}
	decision := models.AlertDecision(order.OrderAccepted)
	if decision == "" {
		decision = models.AlertPending
	}
	a.byID[order.ID] = &models.PendingOrderAlert{
		OrderID:       order.ID,
		OrderAccepted: decision,
		PaymentStatus: order.PaymentStatus,
		Products:      order.Products,
		ReceivedAt:    time.Now().UTC(),
	}
}

// Displayable returns the alerts eligible for the incoming-order surface
func (a *Alerts) Displayable() []models.PendingOrderAlert {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []models.PendingOrderAlert
	for _, alert := range a.byID {
		if alert.Displayable() {
			out = append(out, *alert)
		}
	}
	return out
}

// Accept moves an alert's order into preparation via the upstream and marks
// the alert accepted.
func (a *Alerts) Accept(ctx context.Context, orderID string) error {
	return a.decide(ctx, orderID, models.AlertAccepted, statemachine.StatusPreparing)
}

// Decline rejects the order upstream and marks the alert declined
func (a *Alerts) Decline(ctx context.Context, orderID string) error {
	return a.decide(ctx, orderID, models.AlertDeclined, statemachine.StatusDeclined)
}

func (a *Alerts) decide(ctx context.Context, orderID string, decision models.AlertDecision, status statemachine.Status) error {
	// Claim the decision under the lock before the network call, so two
	// concurrent decisions on the same order can never both reach upstream.
	a.mu.Lock()
	alert, ok := a.byID[orderID]
	if !ok {
		a.mu.Unlock()
		return errors.New("unknown order: " + orderID)
	}
	if alert.OrderAccepted != models.AlertPending {
		// Decisions are one-shot; repeating one is a no-op
		a.mu.Unlock()
		return nil
	}
	if err := statemachine.CanTransition(statemachine.StatusPending, status); err != nil {
		a.mu.Unlock()
		return err
	}
	alert.OrderAccepted = decision
	a.mu.Unlock()

	err := a.upstream.UpdateKitchenStatus(ctx, orderID, string(status))
	if errors.Is(err, api.ErrAmbiguousResponse) {
		// The reply could not be parsed. Re-fetch the authoritative record
		// and compare before deciding whether this actually failed.
		rec, fetchErr := a.upstream.GetOrder(ctx, orderID)
		if fetchErr == nil && rec.OrderStatus == string(status) {
			err = nil
		}
	}
	if err != nil {
		// Release the claim so the operator can retry
		a.mu.Lock()
		alert.OrderAccepted = models.AlertPending
		a.mu.Unlock()
		return err
	}
	return nil
}

// Poll runs the best-effort refresh loop until the context is cancelled.
// Fetch errors are logged and retried on the next tick; duplicate orders are
// absorbed by Upsert.
func (a *Alerts) Poll(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			orders, err := a.upstream.FetchPendingOrders(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("pending-order poll failed: %v", err)
				}
				continue
			}
			for _, order := range orders {
				a.Upsert(order)
			}
		}
	}
}
