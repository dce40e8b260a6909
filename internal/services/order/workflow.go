// Package order implements the multi-step order composition and edit
// workflows.
package order

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/kwabenadev/chopdesk/internal/api"
	"github.com/kwabenadev/chopdesk/internal/models"
	"github.com/kwabenadev/chopdesk/internal/services/extras"
	"github.com/kwabenadev/chopdesk/internal/services/notify"
)

// Step is a stage of the composition workflow
type Step int

const (
	StepDetails Step = iota + 1
	StepItems
	StepPayment
)

var (
	// ErrCustomerDetails rejects advancing past step 1 with incomplete
	// customer or location details
	ErrCustomerDetails = errors.New("customer name, a 10-digit phone number and both locations are required")

	// ErrNoItems rejects advancing past step 2 with an empty order
	ErrNoItems = errors.New("select at least one item")

	// ErrNoDeliveryPrice rejects submission before a delivery price has
	// been derived
	ErrNoDeliveryPrice = errors.New("delivery price has not been computed")

	// ErrItemUnavailable refuses quantity increments for items whose
	// catalog entry is flagged unavailable
	ErrItemUnavailable = errors.New("item is currently unavailable")

	// ErrUnknownItem targets a quantity or removal call at a key that is
	// not in the draft
	ErrUnknownItem = errors.New("item is not in the order")

	// ErrWrongStep rejects a transition out of order
	ErrWrongStep = errors.New("complete the current step first")

	// ErrEmptyBatch rejects completing a batch with no finished orders
	ErrEmptyBatch = errors.New("batch has no completed orders")

	// ErrNoPendingItem rejects modifier calls when no item is being composed
	ErrNoPendingItem = errors.New("no item is being composed")
)

// ExtrasValidationError reports the per-group constraint violations that
// blocked confirming a composed item.
type ExtrasValidationError struct {
	Problems map[string]string
}

func (e *ExtrasValidationError) Error() string {
	return "modifier selection violates group constraints"
}

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// compositeSeparator joins a base item name with an extra's name into a
// distinct line-item identity.
const compositeSeparator = " - "

// CompositeKey builds the line-item identity for a base item with an extra
func CompositeKey(baseName, extraName string) string {
	return baseName + compositeSeparator + extraName
}

// baseNameOf strips a composite key back to the catalog item name
func baseNameOf(key string) string {
	if i := strings.Index(key, compositeSeparator); i >= 0 {
		return key[:i]
	}
	return key
}

// Upstream is the slice of the operations API the workflow needs
type Upstream interface {
	CreateOrder(ctx context.Context, payload api.OrderPayload) (*api.OrderRecord, error)
}

// Workflow assembles one order (or a batch of orders) through the
// Details → Items → Payment steps. All mutations are serialized: a handler's
// mutation runs to completion before the next is admitted.
type Workflow struct {
	mu       sync.Mutex
	upstream Upstream
	notifier *notify.Store

	step         Step
	draft        models.OrderDraft
	availability map[string]bool // catalog name → available
	extrasGroups []models.ExtrasGroup
	pending      *pendingItem

	batch     bool
	completed []models.OrderDraft
}

// pendingItem is the item currently being composed: its modifier engine
// reports every selection change back into selections, which ConfirmItem
// turns into the draft's composite line.
type pendingItem struct {
	name       string
	unitPrice  decimal.Decimal
	groups     []models.ExtrasGroup
	engine     *extras.Engine
	selections map[string][]models.ExtrasOption
}

// NewWorkflow creates a single-order workflow at the details step
func NewWorkflow(upstream Upstream, notifier *notify.Store) *Workflow {
	return &Workflow{
		upstream:     upstream,
		notifier:     notifier,
		step:         StepDetails,
		availability: make(map[string]bool),
	}
}

// NewBatchWorkflow creates a workflow that loops Items → Payment → Details
// of the next order until the batch is completed.
func NewBatchWorkflow(upstream Upstream, notifier *notify.Store) *Workflow {
	w := NewWorkflow(upstream, notifier)
	w.batch = true
	return w
}

// SetCatalog records which catalog items may currently be ordered
func (w *Workflow) SetCatalog(items []api.InventoryItem) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.availability = make(map[string]bool, len(items))
	for _, item := range items {
		w.availability[item.Name] = item.Available
	}
}

// Step reports the current stage
func (w *Workflow) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Draft returns a snapshot of the order being assembled
func (w *Workflow) Draft() models.OrderDraft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot()
}

func (w *Workflow) snapshot() models.OrderDraft {
	d := w.draft
	d.Items = make([]models.SelectedItem, len(w.draft.Items))
	copy(d.Items, w.draft.Items)
	return d
}

// SetCustomer records the customer's name and phone
func (w *Workflow) SetCustomer(name, phone string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.CustomerName = strings.TrimSpace(name)
	w.draft.CustomerPhone = strings.TrimSpace(phone)
}

// SetPickup sets or clears the pickup location and re-derives the delivery
// price.
func (w *Workflow) SetPickup(loc *models.Location) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Pickup = loc
	w.draft.RecomputeDelivery()
}

// SetDropoff sets or clears the dropoff location and re-derives the
// delivery price.
func (w *Workflow) SetDropoff(loc *models.Location) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Dropoff = loc
	w.draft.RecomputeDelivery()
}

// SetComment records the order comment
func (w *Workflow) SetComment(comment string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Comment = comment
}

// SetPaymentMethod records the settlement channel
func (w *Workflow) SetPaymentMethod(method models.PaymentMethod) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.PaymentMethod = method
}

// SetExtrasGroups records the modifier groups items may be composed with
func (w *Workflow) SetExtrasGroups(groups []models.ExtrasGroup) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.extrasGroups = groups
}

// BeginItem starts composing an item whose modifiers go through the
// selection engine, so group constraints and version gating apply before any
// line reaches the draft.
func (w *Workflow) BeginItem(name string, unitPrice decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if available, known := w.availability[name]; known && !available {
		return ErrItemUnavailable
	}
	p := &pendingItem{
		name:       name,
		unitPrice:  unitPrice,
		groups:     w.extrasGroups,
		selections: make(map[string][]models.ExtrasOption),
	}
	p.engine = extras.NewEngine(w.extrasGroups, func(sel extras.Selection) {
		p.selections[sel.GroupID] = sel.Options
	})
	w.pending = p
	return nil
}

// SelectExtra toggles a modifier for the item being composed. Single-choice
// groups replace their selection; multiple-choice groups add or remove.
func (w *Workflow) SelectExtra(groupID string, option models.ExtrasOption, included bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return ErrNoPendingItem
	}
	for _, g := range w.pending.groups {
		if g.ID == groupID && g.ExtrasType == models.ExtrasSingle && included {
			return w.pending.engine.SelectSingle(groupID, option)
		}
	}
	return w.pending.engine.SelectMultiple(groupID, option, included)
}

// SyncItemExtras applies an externally-pushed selection set for the item
// being composed; a push older than the last local change is ignored, so the
// user's last action wins.
func (w *Workflow) SyncItemExtras(groupID string, options []models.ExtrasOption, version uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return false
	}
	return w.pending.engine.SyncExternal(groupID, options, version)
}

// ConfirmItem validates the composed item's modifiers and adds its line to
// the draft: a composite line when modifiers are selected, the plain item
// otherwise. It returns the key of the line it touched.
func (w *Workflow) ConfirmItem() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return "", ErrNoPendingItem
	}
	if problems := w.pending.engine.Validate(); len(problems) > 0 {
		return "", &ExtrasValidationError{Problems: problems}
	}

	p := w.pending
	w.pending = nil

	var sel []models.SelectedItemExtra
	for _, g := range p.groups {
		for _, opt := range p.selections[g.ID] {
			sel = append(sel, models.SelectedItemExtra{
				ID:    opt.ID,
				Name:  opt.FoodName,
				Price: opt.FoodPrice,
			})
		}
	}
	return w.addComposedLine(p.name, p.unitPrice, sel), nil
}

// AddItem adds one unit of a catalog item, merging with an existing line of
// the same name.
func (w *Workflow) AddItem(name string, unitPrice decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if available, known := w.availability[name]; known && !available {
		return ErrItemUnavailable
	}
	w.addComposedLine(name, unitPrice, nil)
	return nil
}

// AddItemWithExtra adds one unit of a base item carrying an extra. The line
// gets the composite "base - extra" identity and is priced at base plus
// extra, so it aggregates separately from the plain base item.
func (w *Workflow) AddItemWithExtra(baseName string, basePrice decimal.Decimal, extra models.SelectedItemExtra) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if available, known := w.availability[baseName]; known && !available {
		return ErrItemUnavailable
	}
	w.addComposedLine(baseName, basePrice, []models.SelectedItemExtra{extra})
	return nil
}

// addComposedLine merges one unit into the draft under the base name or,
// when modifiers are attached, the composite "base - modifiers" identity
// priced at base plus the modifier sum. Callers hold the lock.
func (w *Workflow) addComposedLine(base string, basePrice decimal.Decimal, sel []models.SelectedItemExtra) string {
	key := base
	price := basePrice
	if len(sel) > 0 {
		names := make([]string, len(sel))
		for i, e := range sel {
			names[i] = e.Name
			price = price.Add(e.Price)
		}
		key = CompositeKey(base, strings.Join(names, ", "))
	}
	for i := range w.draft.Items {
		if w.draft.Items[i].Name == key {
			w.draft.Items[i].Quantity++
			return key
		}
	}
	w.draft.Items = append(w.draft.Items, models.SelectedItem{
		Name:      key,
		Quantity:  1,
		UnitPrice: price,
		Extras:    sel,
	})
	return key
}

// UpdateQuantity adjusts a line's quantity by delta. Decrements clamp at 1;
// increments are refused while the underlying catalog item is flagged
// unavailable. Enforced here, not in the UI.
func (w *Workflow) UpdateQuantity(key string, delta int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.draft.Items {
		if w.draft.Items[i].Name != key {
			continue
		}
		if delta > 0 {
			if available, known := w.availability[baseNameOf(key)]; known && !available {
				return ErrItemUnavailable
			}
		}
		next := w.draft.Items[i].Quantity + delta
		if next < 1 {
			next = 1
		}
		w.draft.Items[i].Quantity = next
		return nil
	}
	return ErrUnknownItem
}

// RemoveItem deletes the line with exactly the given key. For a line added
// with an extra that is the composite key, not the base item name.
func (w *Workflow) RemoveItem(key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.draft.Items {
		if w.draft.Items[i].Name == key {
			w.draft.Items = append(w.draft.Items[:i], w.draft.Items[i+1:]...)
			return nil
		}
	}
	return ErrUnknownItem
}

// Next advances to the following step if its guard passes
func (w *Workflow) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepDetails:
		if err := w.detailsGuard(); err != nil {
			return err
		}
		w.step = StepItems
	case StepItems:
		if len(w.draft.Items) == 0 {
			return ErrNoItems
		}
		w.step = StepPayment
	default:
		return ErrWrongStep
	}
	return nil
}

// Back returns to the previous step without touching the draft
func (w *Workflow) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > StepDetails {
		w.step--
	}
}

func (w *Workflow) detailsGuard() error {
	if w.draft.CustomerName == "" ||
		!phonePattern.MatchString(w.draft.CustomerPhone) ||
		w.draft.Pickup == nil || w.draft.Dropoff == nil {
		return ErrCustomerDetails
	}
	return nil
}

func (w *Workflow) submitGuard() error {
	if err := w.detailsGuard(); err != nil {
		return err
	}
	if len(w.draft.Items) == 0 {
		return ErrNoItems
	}
	if w.draft.DeliveryPrice.IsZero() {
		return ErrNoDeliveryPrice
	}
	return nil
}

// Submit sends the assembled order upstream. Success emits an order_created
// notification and invokes onComplete; failure emits a retry-eligible
// notification and leaves the draft untouched so the user can resubmit. A
// result arriving after the context is cancelled is discarded.
func (w *Workflow) Submit(ctx context.Context, onComplete func(*api.OrderRecord)) error {
	w.mu.Lock()
	if err := w.submitGuard(); err != nil {
		w.mu.Unlock()
		return err
	}
	payload := buildPayload(w.snapshot())
	w.mu.Unlock()

	rec, err := w.upstream.CreateOrder(ctx, payload)
	if ctx.Err() != nil {
		// The caller is gone; do not update state from a stale result.
		return ctx.Err()
	}
	if err != nil {
		w.notifier.Add(models.TypeOrderStatus,
			fmt.Sprintf("Order for %s could not be placed. Tap to retry.", payload.CustomerName))
		return fmt.Errorf("order submission failed: %w", err)
	}

	w.notifier.Add(models.TypeOrderCreated,
		fmt.Sprintf("Order for %s placed (GHS %s)", payload.CustomerName, payload.TotalPrice.StringFixed(2)))

	w.mu.Lock()
	w.reset()
	w.mu.Unlock()

	if onComplete != nil {
		onComplete(rec)
	}
	return nil
}

// CompleteCurrent finishes the current order of a batch and loops back to
// the details step for the next one.
func (w *Workflow) CompleteCurrent() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.batch {
		return ErrWrongStep
	}
	if err := w.submitGuard(); err != nil {
		return err
	}
	w.completed = append(w.completed, w.snapshot())
	w.reset()
	return nil
}

// CompletedCount reports how many orders the batch has accumulated
func (w *Workflow) CompletedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.completed)
}

// CompleteBatch submits every accumulated order. Orders that fail stay in
// the batch for resubmission; each outcome emits its own notification.
func (w *Workflow) CompleteBatch(ctx context.Context, onComplete func(*api.OrderRecord)) error {
	w.mu.Lock()
	if !w.batch {
		w.mu.Unlock()
		return ErrWrongStep
	}
	if len(w.completed) == 0 {
		w.mu.Unlock()
		return ErrEmptyBatch
	}
	pending := make([]models.OrderDraft, len(w.completed))
	copy(pending, w.completed)
	w.mu.Unlock()

	var remaining []models.OrderDraft
	var firstErr error
	for _, draft := range pending {
		payload := buildPayload(draft)
		rec, err := w.upstream.CreateOrder(ctx, payload)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			remaining = append(remaining, draft)
			if firstErr == nil {
				firstErr = err
			}
			w.notifier.Add(models.TypeOrderStatus,
				fmt.Sprintf("Order for %s could not be placed. Tap to retry.", payload.CustomerName))
			continue
		}
		w.notifier.Add(models.TypeOrderCreated,
			fmt.Sprintf("Order for %s placed (GHS %s)", payload.CustomerName, payload.TotalPrice.StringFixed(2)))
		if onComplete != nil {
			onComplete(rec)
		}
	}

	w.mu.Lock()
	w.completed = remaining
	w.mu.Unlock()

	if firstErr != nil {
		return fmt.Errorf("batch submission incomplete: %w", firstErr)
	}
	return nil
}

// reset clears the draft for the next order; callers hold the lock
func (w *Workflow) reset() {
	w.draft = models.OrderDraft{}
	w.pending = nil
	w.step = StepDetails
}

func buildPayload(draft models.OrderDraft) api.OrderPayload {
	lines := make([]api.OrderLine, 0, len(draft.Items))
	for _, item := range draft.Items {
		lines = append(lines, api.OrderLine{
			Name:     item.Name,
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
		})
	}
	payload := api.OrderPayload{
		CustomerName:  draft.CustomerName,
		CustomerPhone: draft.CustomerPhone,
		Items:         lines,
		DeliveryPrice: draft.DeliveryPrice,
		TotalPrice:    draft.TotalPrice(),
		Comment:       draft.Comment,
		PaymentMethod: string(draft.PaymentMethod),
	}
	if draft.Pickup != nil {
		payload.Pickup = api.OrderPoint{Lat: draft.Pickup.Lat, Lng: draft.Pickup.Lng, Address: draft.Pickup.Address}
	}
	if draft.Dropoff != nil {
		payload.Dropoff = api.OrderPoint{Lat: draft.Dropoff.Lat, Lng: draft.Dropoff.Lng, Address: draft.Dropoff.Address}
	}
	return payload
}
