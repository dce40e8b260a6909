package models

import "github.com/shopspring/decimal"

// ExtrasType distinguishes single-choice from multiple-choice groups
type ExtrasType string

const (
	ExtrasSingle   ExtrasType = "single"
	ExtrasMultiple ExtrasType = "multiple"
)

// ExtrasOption is one selectable modifier inside a group
type ExtrasOption struct {
	ID        string          `json:"id"`
	FoodName  string          `json:"foodName"`
	FoodPrice decimal.Decimal `json:"foodPrice"`
}

// ExtrasGroup is a named set of modifiers attachable to a menu item,
// e.g. "Spice Level".
type ExtrasGroup struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	ExtrasType   ExtrasType     `json:"extrasType"`
	Required     bool           `json:"required"`
	MinSelection *int           `json:"minSelection,omitempty"`
	MaxSelection *int           `json:"maxSelection,omitempty"`
	Options      []ExtrasOption `json:"options"`
}

// ExtrasSelection is a group's current selection set enriched with the group
// metadata the order workflow needs to price and validate it.
type ExtrasSelection struct {
	GroupID      string         `json:"groupId"`
	GroupTitle   string         `json:"groupTitle"`
	ExtrasType   ExtrasType     `json:"extrasType"`
	Required     bool           `json:"required"`
	MinSelection *int           `json:"minSelection,omitempty"`
	MaxSelection *int           `json:"maxSelection,omitempty"`
	Options      []ExtrasOption `json:"options"`
}
