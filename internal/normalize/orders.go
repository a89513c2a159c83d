package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashendes/store-console/internal/models"
	"github.com/shopspring/decimal"
)

// camelAddress is the shippingAddress block of native orders
type camelAddress struct {
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	Phone        flexString `json:"phone"`
	AddressLine1 string     `json:"addressLine1"`
	AddressLine2 string     `json:"addressLine2"`
	City         string     `json:"city"`
	State        string     `json:"state"`
	PinCode      flexString `json:"pinCode"`
	Pincode      flexString `json:"pincode"`
	PostalCode   flexString `json:"postalCode"`
	Country      string     `json:"country"`
}

// snakeAddress is the shipping_address block of fulfillment records
type snakeAddress struct {
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	Phone        flexString `json:"phone"`
	AddressLine1 string     `json:"address_line1"`
	AddressLine2 string     `json:"address_line2"`
	City         string     `json:"city"`
	State        string     `json:"state"`
	PostalCode   flexString `json:"postal_code"`
	Pincode      flexString `json:"pincode"`
	Country      string     `json:"country"`
}

// productLine is an entry of products[]
type productLine struct {
	ProductID flexString       `json:"productId"`
	ID        flexString       `json:"_id"`
	Name      string           `json:"name"`
	Quantity  flexInt          `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
	Image     string           `json:"image"`
}

// fulfillmentLine is an entry of order_items[]
type fulfillmentLine struct {
	SKU       flexString       `json:"sku"`
	ItemID    flexString       `json:"item_id"`
	ItemName  string           `json:"item_name"`
	Units     flexInt          `json:"units"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// cartLine is an entry of cartItems[], the only shape with per-item status
type cartLine struct {
	ProductID flexString       `json:"productId"`
	ID        flexString       `json:"_id"`
	Name      string           `json:"name"`
	Price     *decimal.Decimal `json:"price"`
	Quantity  flexInt          `json:"quantity"`
	Category  string           `json:"category"`
	Status    string           `json:"status"`
}

// rawOrder is the union of every known upstream order shape
type rawOrder struct {
	MongoID    flexString `json:"_id"`
	ID         flexString `json:"id"`
	OrderID    flexString `json:"orderId"`
	SnakeID    flexString `json:"order_id"`
	OrderNum   flexString `json:"order_number"`
	Name       string     `json:"name"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Phone      flexString `json:"phone"`
	Mobile     flexString `json:"mobile"`
	FlatLine   *string    `json:"address"`
	FlatCity   string     `json:"city"`
	FlatState  string     `json:"state"`
	FlatPin    flexString `json:"pincode"`
	CustomerNm string     `json:"customer_name"`

	ShippingAddress *camelAddress `json:"shippingAddress"`
	SnakeAddress    *snakeAddress `json:"shipping_address"`

	Products   *[]productLine     `json:"products"`
	OrderItems *[]fulfillmentLine `json:"order_items"`
	CartItems  *[]cartLine        `json:"cartItems"`

	Total           *decimal.Decimal `json:"total"`
	TotalOrderValue *decimal.Decimal `json:"total_order_value"`
	TotalAmount     *decimal.Decimal `json:"totalAmount"`

	PaymentMethod      string  `json:"paymentMethod"`
	SnakePaymentMethod string  `json:"payment_method"`
	Status             *string `json:"status"`
	CreatedAt          string  `json:"createdAt"`
	SnakeCreatedAt     string  `json:"created_at"`
	OrderDate          string  `json:"order_date"`
}

// OrderBatch is the result of normalizing a fetched order collection
type OrderBatch struct {
	Source   models.SourceTag
	Orders   []models.Order
	Rejected []*SchemaMismatch
	Warnings []TotalMismatch
}

// Excluded returns the number of records left out of Orders
func (b OrderBatch) Excluded() int {
	return len(b.Rejected)
}

// NormalizeOrders maps every raw record, collecting failures instead of dropping them
func NormalizeOrders(source models.SourceTag, records []json.RawMessage) OrderBatch {
	batch := OrderBatch{Source: source, Orders: make([]models.Order, 0, len(records))}
	for i, raw := range records {
		order, warning, err := NormalizeOrder(source, raw)
		if err != nil {
			sm, ok := err.(*SchemaMismatch)
			if !ok {
				sm = mismatch(source, "", "record", err.Error())
			}
			sm.Index = i
			batch.Rejected = append(batch.Rejected, sm)
			continue
		}
		if warning != nil {
			batch.Warnings = append(batch.Warnings, *warning)
		}
		batch.Orders = append(batch.Orders, order)
	}
	return batch
}

// NormalizeOrder maps one raw order into the canonical shape. The returned
// TotalMismatch is advisory and non-nil only when the declared total is off
// from the line item sum by more than Epsilon.
func NormalizeOrder(source models.SourceTag, raw json.RawMessage) (models.Order, *TotalMismatch, error) {
	var r rawOrder
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Order{}, nil, mismatch(source, "", fieldOf(err), err.Error())
	}

	id := firstNonEmpty(string(r.MongoID), string(r.ID), string(r.SnakeID), string(r.OrderID))
	if id == "" {
		return models.Order{}, nil, mismatch(source, "", "id", "no identifier present")
	}

	order := models.Order{
		ID:            id,
		Number:        firstNonEmpty(string(r.OrderID), string(r.OrderNum), string(r.SnakeID), id),
		PaymentMethod: firstNonEmpty(r.PaymentMethod, r.SnakePaymentMethod),
		CreatedAt:     parseTime(r.CreatedAt, r.SnakeCreatedAt, r.OrderDate),
		Source:        source,
	}
	mapCustomer(&r, &order)

	items, err := mapLineItems(source, id, &r)
	if err != nil {
		return models.Order{}, nil, err
	}
	order.LineItems = items

	total, field := declaredTotal(&r)
	if total == nil {
		return models.Order{}, nil, mismatch(source, id, "total", "none of total, total_order_value, totalAmount present")
	}
	if total.IsNegative() {
		return models.Order{}, nil, mismatch(source, id, field, "negative total")
	}
	order.Total = *total

	if r.Status == nil || strings.TrimSpace(*r.Status) == "" {
		return models.Order{}, nil, mismatch(source, id, "status", "missing status")
	}
	order.Status = mapStatus(source, *r.Status)

	var warning *TotalMismatch
	derived := order.DerivedTotal()
	if derived.Sub(order.Total).Abs().GreaterThan(Epsilon) {
		warning = &TotalMismatch{OrderID: id, Source: source, Declared: order.Total, Derived: derived}
	}
	return order, warning, nil
}

// mapStatus passes fulfillment vocabulary through verbatim; the managed sources
// are matched case-insensitively against the canonical states.
func mapStatus(source models.SourceTag, status string) models.OrderStatus {
	if source == models.SourceFulfillment {
		return models.OrderStatus(status)
	}
	parsed, _ := models.ParseOrderStatus(status)
	return parsed
}

func mapCustomer(r *rawOrder, order *models.Order) {
	switch {
	case r.ShippingAddress != nil:
		a := r.ShippingAddress
		order.CustomerName = joinName(a.FirstName, a.LastName)
		order.CustomerEmail = firstNonEmpty(a.Email, r.Email)
		order.CustomerPhone = firstNonEmpty(string(a.Phone), string(r.Phone))
		order.ShippingAddress = models.Address{
			Line1:      a.AddressLine1,
			Line2:      a.AddressLine2,
			City:       a.City,
			State:      a.State,
			PostalCode: firstNonEmpty(string(a.PinCode), string(a.Pincode), string(a.PostalCode)),
			Country:    a.Country,
		}
	case r.SnakeAddress != nil:
		a := r.SnakeAddress
		order.CustomerName = firstNonEmpty(joinName(a.FirstName, a.LastName), r.CustomerNm)
		order.CustomerEmail = firstNonEmpty(a.Email, r.Email)
		order.CustomerPhone = firstNonEmpty(string(a.Phone), string(r.Phone))
		order.ShippingAddress = models.Address{
			Line1:      a.AddressLine1,
			Line2:      a.AddressLine2,
			City:       a.City,
			State:      a.State,
			PostalCode: firstNonEmpty(string(a.PostalCode), string(a.Pincode)),
			Country:    a.Country,
		}
	default:
		// flat legacy shape carries neither country nor a second line
		order.CustomerName = firstNonEmpty(r.Name, r.Username, r.CustomerNm)
		order.CustomerEmail = r.Email
		order.CustomerPhone = firstNonEmpty(string(r.Phone), string(r.Mobile))
		line1 := ""
		if r.FlatLine != nil {
			line1 = *r.FlatLine
		}
		order.ShippingAddress = models.Address{
			Line1:      line1,
			City:       r.FlatCity,
			State:      r.FlatState,
			PostalCode: string(r.FlatPin),
		}
	}
}

func mapLineItems(source models.SourceTag, id string, r *rawOrder) ([]models.LineItem, error) {
	switch {
	case r.Products != nil:
		items := make([]models.LineItem, 0, len(*r.Products))
		for i, p := range *r.Products {
			item, err := lineItem(source, id, fmt.Sprintf("products[%d]", i), p.Name, p.Quantity, p.Price)
			if err != nil {
				return nil, err
			}
			item.ProductRef = firstNonEmpty(string(p.ProductID), string(p.ID))
			item.Image = p.Image
			items = append(items, item)
		}
		return nonEmpty(source, id, items)
	case r.OrderItems != nil:
		items := make([]models.LineItem, 0, len(*r.OrderItems))
		for i, p := range *r.OrderItems {
			item, err := lineItem(source, id, fmt.Sprintf("order_items[%d]", i), p.ItemName, p.Units, p.UnitPrice)
			if err != nil {
				return nil, err
			}
			item.ProductRef = firstNonEmpty(string(p.SKU), string(p.ItemID))
			items = append(items, item)
		}
		return nonEmpty(source, id, items)
	case r.CartItems != nil:
		items := make([]models.LineItem, 0, len(*r.CartItems))
		for i, p := range *r.CartItems {
			item, err := lineItem(source, id, fmt.Sprintf("cartItems[%d]", i), p.Name, p.Quantity, p.Price)
			if err != nil {
				return nil, err
			}
			item.ProductRef = firstNonEmpty(string(p.ProductID), string(p.ID))
			item.Category = p.Category
			item.Status = strings.TrimSpace(p.Status)
			items = append(items, item)
		}
		return nonEmpty(source, id, items)
	}
	return nil, mismatch(source, id, "lineItems", "none of products, order_items, cartItems present")
}

func nonEmpty(source models.SourceTag, id string, items []models.LineItem) ([]models.LineItem, error) {
	if len(items) == 0 {
		return nil, mismatch(source, id, "lineItems", "order has no line items")
	}
	return items, nil
}

func lineItem(source models.SourceTag, id, path, name string, qty flexInt, price *decimal.Decimal) (models.LineItem, error) {
	if strings.TrimSpace(name) == "" {
		return models.LineItem{}, mismatch(source, id, path+".name", "missing item name")
	}
	if !qty.Set || qty.Value <= 0 {
		return models.LineItem{}, mismatch(source, id, path+".quantity", "quantity must be a positive integer")
	}
	if price == nil {
		return models.LineItem{}, mismatch(source, id, path+".price", "missing price")
	}
	if price.IsNegative() {
		return models.LineItem{}, mismatch(source, id, path+".price", "negative price")
	}
	return models.LineItem{Name: name, Quantity: qty.Value, UnitPrice: *price}, nil
}

func declaredTotal(r *rawOrder) (*decimal.Decimal, string) {
	switch {
	case r.Total != nil:
		return r.Total, "total"
	case r.TotalOrderValue != nil:
		return r.TotalOrderValue, "total_order_value"
	case r.TotalAmount != nil:
		return r.TotalAmount, "totalAmount"
	}
	return nil, ""
}
