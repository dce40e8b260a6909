package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kwabenadev/chopdesk/internal/api"
	"github.com/kwabenadev/chopdesk/internal/models"
	"github.com/kwabenadev/chopdesk/internal/services/order"
	"github.com/kwabenadev/chopdesk/internal/statemachine"
)

type draftItemRequest struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`

	// Extras maps a modifier group id to the options picked from it. The
	// selections run through the modifier engine, so group constraints are
	// enforced before any line reaches the draft.
	Extras map[string][]models.ExtrasOption `json:"extras,omitempty"`
}

type draftRequest struct {
	CustomerName  string               `json:"customer_name"`
	CustomerPhone string               `json:"customer_phone"`
	Pickup        *models.Location     `json:"pickup"`
	Dropoff       *models.Location     `json:"dropoff"`
	Items         []draftItemRequest   `json:"items"`
	Comment       string               `json:"comment"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
}

// applyDraft walks a submitted draft through the workflow's own steps so
// every guard and clamp applies to API callers exactly as it would to the UI.
func (h *Handler) applyDraft(w http.ResponseWriter, wf *order.Workflow, req draftRequest) bool {
	wf.SetCustomer(req.CustomerName, req.CustomerPhone)
	wf.SetPickup(req.Pickup)
	wf.SetDropoff(req.Dropoff)
	wf.SetComment(req.Comment)
	wf.SetPaymentMethod(req.PaymentMethod)

	if err := wf.Next(); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	for _, item := range req.Items {
		key, ok := h.composeItem(w, wf, item)
		if !ok {
			return false
		}
		if item.Quantity > 1 {
			if err := wf.UpdateQuantity(key, item.Quantity-1); err != nil {
				h.writeError(w, http.StatusUnprocessableEntity, err.Error())
				return false
			}
		}
	}
	if err := wf.Next(); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}

// composeItem adds one draft line. Items carrying modifier selections are
// composed through the workflow's engine, so constraint violations come back
// as a per-group error map.
func (h *Handler) composeItem(w http.ResponseWriter, wf *order.Workflow, item draftItemRequest) (string, bool) {
	if len(item.Extras) == 0 {
		if err := wf.AddItem(item.Name, item.UnitPrice); err != nil {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return "", false
		}
		return item.Name, true
	}

	if err := wf.BeginItem(item.Name, item.UnitPrice); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return "", false
	}
	for groupID, options := range item.Extras {
		for _, option := range options {
			if err := wf.SelectExtra(groupID, option, true); err != nil {
				h.writeError(w, http.StatusUnprocessableEntity, err.Error())
				return "", false
			}
		}
	}
	key, err := wf.ConfirmItem()
	if err != nil {
		var extrasErr *order.ExtrasValidationError
		if errors.As(err, &extrasErr) {
			h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":  extrasErr.Error(),
				"errors": extrasErr.Problems,
			})
			return "", false
		}
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return "", false
	}
	return key, true
}

// loadCatalog primes a workflow with the selected branch's availability and
// modifier groups, so unavailable items and constraint-violating selections
// are refused at the mutation boundary.
func (h *Handler) loadCatalog(r *http.Request, wf *order.Workflow) {
	branchID := h.selectedBranch()
	if branchID == "" {
		return
	}
	items, err := h.client.ListInventory(r.Context(), branchID)
	if err != nil {
		// Availability is unknown; the upstream enforces it on create
		return
	}
	wf.SetCatalog(items)

	groups, err := h.client.ListExtrasGroups(r.Context(), branchID)
	if err != nil {
		return
	}
	wf.SetExtrasGroups(groups)
}

// CreateOrder assembles and submits one order
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if !h.readJSON(w, r, &req) {
		return
	}

	wf := order.NewWorkflow(h.client, h.notifications)
	h.loadCatalog(r, wf)
	if !h.applyDraft(w, wf, req) {
		return
	}

	var created *api.OrderRecord
	err := wf.Submit(r.Context(), func(rec *api.OrderRecord) { created = rec })
	if err != nil {
		if errors.Is(err, order.ErrNoDeliveryPrice) || errors.Is(err, order.ErrCustomerDetails) || errors.Is(err, order.ErrNoItems) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.writeError(w, http.StatusBadGateway, "order could not be placed, try again")
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

type batchRequest struct {
	Orders []draftRequest `json:"orders"`
}

// CreateBatch assembles a batch of orders and submits them together
func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !h.readJSON(w, r, &req) {
		return
	}
	if len(req.Orders) == 0 {
		h.writeError(w, http.StatusBadRequest, "batch is empty")
		return
	}

	wf := order.NewBatchWorkflow(h.client, h.notifications)
	h.loadCatalog(r, wf)
	for _, draft := range req.Orders {
		if !h.applyDraft(w, wf, draft) {
			return
		}
		if err := wf.CompleteCurrent(); err != nil {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	var created []*api.OrderRecord
	err := wf.CompleteBatch(r.Context(), func(rec *api.OrderRecord) {
		created = append(created, rec)
	})
	if err != nil {
		h.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":     "some orders could not be placed, retry the remainder",
			"created":   created,
			"remaining": wf.CompletedCount(),
		})
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"created": created})
}

type editRequest struct {
	CustomerName  *string          `json:"customer_name,omitempty"`
	CustomerPhone *string          `json:"customer_phone,omitempty"`
	Pickup        *models.Location `json:"pickup,omitempty"`
	Dropoff       *models.Location `json:"dropoff,omitempty"`
	Quantities    map[string]int   `json:"quantities,omitempty"`
	OrderStatus   *string          `json:"order_status,omitempty"`
	PaymentStatus *string          `json:"payment_status,omitempty"`
}

// EditOrder applies edits to an existing order and saves the full payload
func (h *Handler) EditOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	rec, err := h.client.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	var req editRequest
	if !h.readJSON(w, r, &req) {
		return
	}

	editor := order.NewEditor(rec, h.client, h.notifications)
	if req.CustomerName != nil || req.CustomerPhone != nil {
		name, phone := rec.CustomerName, rec.CustomerPhone
		if req.CustomerName != nil {
			name = *req.CustomerName
		}
		if req.CustomerPhone != nil {
			phone = *req.CustomerPhone
		}
		editor.SetCustomer(name, phone)
	}
	if req.Pickup != nil {
		editor.SetPickup(req.Pickup)
	}
	if req.Dropoff != nil {
		editor.SetDropoff(req.Dropoff)
	}
	for key, quantity := range req.Quantities {
		if err := editor.SetItemQuantity(key, quantity); err != nil {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}
	if req.OrderStatus != nil {
		editor.SetOrderStatus(*req.OrderStatus)
	}
	if req.PaymentStatus != nil {
		editor.SetPaymentStatus(*req.PaymentStatus)
	}

	updated, err := editor.Save(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "changes were not saved, try again")
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus advances an order's kitchen status
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req statusRequest
	if !h.readJSON(w, r, &req) {
		return
	}

	rec, err := h.client.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	editor := order.NewEditor(rec, h.client, h.notifications)
	if err := editor.AdvanceKitchenStatus(r.Context(), statemachine.Status(req.Status)); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	orderStatus, paymentStatus := editor.OrderStatus()
	h.writeJSON(w, http.StatusOK, map[string]string{
		"order_status":   orderStatus,
		"payment_status": paymentStatus,
	})
}
