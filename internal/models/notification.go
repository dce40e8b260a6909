package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType categorizes user-facing notifications
type NotificationType string

const (
	TypeOrderCreated      NotificationType = "order_created"
	TypeOrderStatus       NotificationType = "order_status"
	TypeInventoryUpdate   NotificationType = "inventory_update"
	TypeTransactionStatus NotificationType = "transaction_status"
	TypeEmployeeUpdate    NotificationType = "employee_update"
	TypeProfileUpdate     NotificationType = "profile_update"
	TypePasswordChange    NotificationType = "password_change"
	TypeUserDeleted       NotificationType = "user_deleted"
	TypeUserAdded         NotificationType = "user_added"
	TypeOrderEdited       NotificationType = "order_edited"
)

// Notification is a single entry in the dashboard's notification list
type Notification struct {
	ID      string           `json:"id"`
	Type    NotificationType `json:"type"`
	Message string           `json:"message"`
	Time    time.Time        `json:"time"`
	Read    bool             `json:"read"`
}

// NewNotification creates an unread notification with a generated id
func NewNotification(nt NotificationType, message string) Notification {
	return Notification{
		ID:      uuid.NewString(),
		Type:    nt,
		Message: message,
		Time:    time.Now().UTC(),
		Read:    false,
	}
}

// AlertDecision is the operator's action on an incoming-order alert
type AlertDecision string

const (
	AlertPending  AlertDecision = "pending"
	AlertAccepted AlertDecision = "accepted"
	AlertDeclined AlertDecision = "declined"
)

// PendingOrderAlert is an incoming order awaiting accept/decline, kept apart
// from the general notification list.
type PendingOrderAlert struct {
	OrderID       string        `json:"order_id"`
	OrderAccepted AlertDecision `json:"order_accepted"`
	PaymentStatus string        `json:"payment_status"`
	Products      []ProductLine `json:"products"`
	ReceivedAt    time.Time     `json:"received_at"`
}

// ProductLine is one line of an incoming order
type ProductLine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// Displayable reports whether the alert belongs on the incoming-order
// surface: still pending, and already paid.
func (a *PendingOrderAlert) Displayable() bool {
	return a.OrderAccepted == AlertPending && a.PaymentStatus == "Paid"
}
