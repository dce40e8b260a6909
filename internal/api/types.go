package api

import (
	"github.com/shopspring/decimal"

	"github.com/kwabenadev/chopdesk/internal/models"
)

// LoginRequest carries first-factor credentials to the upstream API
type LoginRequest struct {
	Identifier string              `json:"identifier"`
	Secret     string              `json:"secret"`
	Channel    models.LoginChannel `json:"channel"`
}

// LoginResponse carries the bearer token on success. An empty token means
// the login failed regardless of HTTP status.
type LoginResponse struct {
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

// OTPValidation is the tri-state verification signal from the upstream API
type OTPValidation string

const (
	OTPFound    OTPValidation = "otpFound"
	OTPNotExist OTPValidation = "otpNotExist"
)

// VerifyOTPResponse reports whether the submitted code matched
type VerifyOTPResponse struct {
	Validation OTPValidation `json:"validation"`
}

// OrderLine is one priced line item in an order payload
type OrderLine struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// OrderPoint is a lat/lon coordinate with its display address
type OrderPoint struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// OrderPayload is the create/edit order body
type OrderPayload struct {
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	Pickup        OrderPoint      `json:"pickup"`
	Dropoff       OrderPoint      `json:"dropoff"`
	Items         []OrderLine     `json:"items"`
	DeliveryPrice decimal.Decimal `json:"delivery_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Comment       string          `json:"comment,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	OrderStatus   string          `json:"order_status,omitempty"`
	Paid          bool            `json:"paid"`
}

// OrderRecord is the upstream's view of an order
type OrderRecord struct {
	ID            string          `json:"id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	Pickup        OrderPoint      `json:"pickup"`
	Dropoff       OrderPoint      `json:"dropoff"`
	Items         []OrderLine     `json:"items"`
	DeliveryPrice decimal.Decimal `json:"delivery_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Comment       string          `json:"comment,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	OrderStatus   string          `json:"order_status"`
	PaymentStatus string          `json:"payment_status"`
}

// Branch is one selectable restaurant branch
type Branch struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// InventoryItem is one catalog entry of the selected branch
type InventoryItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
	Available bool            `json:"available"`
}

// PendingOrder is an incoming order awaiting accept/decline
type PendingOrder struct {
	ID            string               `json:"id"`
	OrderAccepted string               `json:"order_accepted"`
	PaymentStatus string               `json:"payment_status"`
	Products      []models.ProductLine `json:"products"`
}
