package models

import (
	"math"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates the accepted settlement channels
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentMomo PaymentMethod = "momo"
	PaymentVisa PaymentMethod = "visa"
)

// Location is a resolved map point with its display address
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// SelectedItemExtra is a modifier attached to a selected item
type SelectedItemExtra struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// SelectedItem is one line of an order draft, identified by name. Items with
// an extra attached use the composite key "base - extra" as their name, so
// they aggregate separately from the plain base item.
type SelectedItem struct {
	Name      string              `json:"name"`
	Quantity  int                 `json:"quantity"`
	UnitPrice decimal.Decimal     `json:"unit_price"`
	Extras    []SelectedItemExtra `json:"extras,omitempty"`
}

// LineTotal returns unit price times quantity
func (si *SelectedItem) LineTotal() decimal.Decimal {
	return si.UnitPrice.Mul(decimal.NewFromInt(int64(si.Quantity)))
}

// OrderDraft is the order being assembled by the composition workflow
type OrderDraft struct {
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	Pickup        *Location       `json:"pickup,omitempty"`
	Dropoff       *Location       `json:"dropoff,omitempty"`
	DistanceKM    *float64        `json:"distance_km,omitempty"`
	DeliveryPrice decimal.Decimal `json:"delivery_price"`
	Items         []SelectedItem  `json:"items"`
	Comment       string          `json:"comment"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}

// RecomputeDelivery re-derives distance and delivery price from the current
// locations. Clearing either location resets distance to nil and the
// delivery price to unset.
func (d *OrderDraft) RecomputeDelivery() {
	if d.Pickup == nil || d.Dropoff == nil {
		d.DistanceKM = nil
		d.DeliveryPrice = decimal.Zero
		return
	}
	dist := HaversineKM(*d.Pickup, *d.Dropoff)
	d.DistanceKM = &dist
	d.DeliveryPrice = DeliveryPrice(dist)
}

// FoodSubtotal sums unit price × quantity over all selected items
func (d *OrderDraft) FoodSubtotal() decimal.Decimal {
	total := decimal.Zero
	for i := range d.Items {
		total = total.Add(d.Items[i].LineTotal())
	}
	return total
}

// TotalPrice is the food subtotal plus the derived delivery price
func (d *OrderDraft) TotalPrice() decimal.Decimal {
	return d.FoodSubtotal().Add(d.DeliveryPrice)
}

// DeliveryPrice derives the delivery fee from a distance in kilometres:
// flat 10 up to 2km, otherwise round(15 + 2.5 × (distance − 1)).
func DeliveryPrice(distanceKM float64) decimal.Decimal {
	if distanceKM <= 2 {
		return decimal.NewFromInt(10)
	}
	over := decimal.NewFromFloat(math.Max(0, distanceKM-1))
	fee := decimal.NewFromInt(15).Add(decimal.NewFromFloat(2.5).Mul(over))
	return fee.Round(0)
}

const earthRadiusKM = 6371.0

// HaversineKM computes the great-circle distance between two points in
// kilometres.
func HaversineKM(a, b Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
