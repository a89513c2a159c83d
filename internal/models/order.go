package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order as shown in the console
type OrderStatus string

// OrderStatus constants
const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
)

// CanonicalOrderStatuses lists the managed states in workflow order
var CanonicalOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
}

// ParseOrderStatus matches s case-insensitively against the managed states.
// Unknown values are returned verbatim with ok=false.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	trimmed := strings.TrimSpace(s)
	for _, status := range CanonicalOrderStatuses {
		if strings.EqualFold(trimmed, string(status)) {
			return status, true
		}
	}
	return OrderStatus(s), false
}

// SourceTag identifies the upstream schema an order was read from
type SourceTag string

// SourceTag constants
const (
	SourceNative      SourceTag = "native"
	SourceFulfillment SourceTag = "fulfillment"
	SourceLegacyCart  SourceTag = "legacyCart"
)

// Sources lists every known upstream order schema
var Sources = []SourceTag{SourceNative, SourceFulfillment, SourceLegacyCart}

// ParseSourceTag resolves a source tag, accepting the kebab-case spelling used in URLs
func ParseSourceTag(s string) (SourceTag, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "native":
		return SourceNative, true
	case "fulfillment":
		return SourceFulfillment, true
	case "legacycart", "legacy-cart", "legacy":
		return SourceLegacyCart, true
	}
	return "", false
}

// ReadOnly reports whether orders from this source may be mutated from the console
func (s SourceTag) ReadOnly() bool {
	return s == SourceFulfillment
}

// Address is a shipping address
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country,omitempty"`
}

// LineItem represents an item in an order
type LineItem struct {
	ProductRef string          `json:"productRef,omitempty"`
	Name       string          `json:"name"`
	Image      string          `json:"image,omitempty"`
	Category   string          `json:"category,omitempty"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Status     string          `json:"lineStatus,omitempty"`
}

// Subtotal returns quantity times unit price
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Order is the canonical order shape shared by every upstream source
type Order struct {
	ID              string          `json:"id"`
	Number          string          `json:"number,omitempty"`
	CustomerName    string          `json:"customerName,omitempty"`
	CustomerEmail   string          `json:"customerEmail,omitempty"`
	CustomerPhone   string          `json:"customerPhone,omitempty"`
	ShippingAddress Address         `json:"shippingAddress"`
	LineItems       []LineItem      `json:"lineItems"`
	Total           decimal.Decimal `json:"total"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	Source          SourceTag       `json:"source"`
}

// Key returns the order identifier
func (o Order) Key() string {
	return o.ID
}

// Clone returns a copy that shares no slices with o
func (o Order) Clone() Order {
	c := o
	if o.LineItems != nil {
		c.LineItems = make([]LineItem, len(o.LineItems))
		copy(c.LineItems, o.LineItems)
	}
	return c
}

// DerivedTotal sums the line item subtotals
func (o Order) DerivedTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.LineItems {
		sum = sum.Add(item.Subtotal())
	}
	return sum
}

// HasLineStatus reports whether any line item carries its own status
func (o Order) HasLineStatus() bool {
	for _, item := range o.LineItems {
		if item.Status != "" {
			return true
		}
	}
	return false
}
