package models

import "time"

// ItemStatus tracks per-item fulfillment on both tickets and orders.
type ItemStatus string

const (
	ItemReceived ItemStatus = "received"
	ItemCooking  ItemStatus = "cooking"
	ItemReady    ItemStatus = "ready"
	ItemServed   ItemStatus = "served"
	ItemCanceled ItemStatus = "canceled"
)

type Customization struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// LineItem is one ordered quantity of a menu item. Prices are snapshots
// taken from the catalog at add-time; later catalog changes never affect
// an existing line.
type LineItem struct {
	ItemID         string          `json:"itemId"`
	MenuItemID     string          `json:"menuItemId"`
	Name           string          `json:"name"`
	UnitPrice      float64         `json:"unitPrice"`
	Quantity       int             `json:"quantity"`
	Customizations []Customization `json:"customizations,omitempty"`
	Status         ItemStatus      `json:"status,omitempty"`
	ItemTotal      float64         `json:"itemTotal"`
	AddedBy        string          `json:"addedBy,omitempty"`
	AddedAt        time.Time       `json:"addedAt,omitempty"`
}

// LineTotal computes (unit price + customization prices) x quantity.
func (li LineItem) LineTotal() float64 {
	extras := 0.0
	for _, c := range li.Customizations {
		extras += c.Price
	}
	return (li.UnitPrice + extras) * float64(li.Quantity)
}

// EffectiveStatus treats items written before status tracking existed as
// received.
func (li LineItem) EffectiveStatus() ItemStatus {
	if li.Status == "" {
		return ItemReceived
	}
	return li.Status
}

// SumLineTotals recomputes the subtotal from scratch.
func SumLineTotals(items []LineItem) float64 {
	sum := 0.0
	for _, li := range items {
		sum += li.ItemTotal
	}
	return sum
}

// CartItem is the ephemeral client-side shape converted into line items
// at checkout. It carries only references; prices come from the catalog.
type CartItem struct {
	MenuItemID     string          `json:"menuItemId"`
	Quantity       int             `json:"quantity"`
	Customizations []Customization `json:"customizations,omitempty"`
}
