// Package order holds the records produced by a scrape: one Order per detail
// page and the Products listed on it.
package order

import (
	"fmt"
	"regexp"
	"strconv"
)

const (
	// DefaultMerchant is the merchant every scraped order is attributed to.
	DefaultMerchant = "Amazon"
	// DescriptionPlaceholder stands in for an order whose item titles could not be read.
	DescriptionPlaceholder = "Amazon Order"
	// MaxDescriptionLength is the rune limit applied to descriptions.
	MaxDescriptionLength = 100
)

type Order struct {
	OrderID     string `json:"order_id"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Merchant    string `json:"merchant"`
}

// New returns an empty Order attributed to DefaultMerchant.
func New() Order {
	return Order{Merchant: DefaultMerchant}
}

func (o Order) String() string {
	return fmt.Sprintf("Order %s: %s - %s on %s", o.OrderID, o.Description, o.Amount, o.Date)
}

// ToMap returns the dictionary form of the order.
func (o Order) ToMap() map[string]any {
	return map[string]any{
		"order_id":    o.OrderID,
		"date":        o.Date,
		"amount":      o.Amount,
		"description": o.Description,
		"merchant":    o.Merchant,
	}
}

// OrderFromMap is the inverse of Order.ToMap, missing keys take their zero
// value except merchant which falls back to DefaultMerchant.
func OrderFromMap(m map[string]any) Order {
	o := Order{
		OrderID:     stringField(m, "order_id"),
		Date:        stringField(m, "date"),
		Amount:      stringField(m, "amount"),
		Description: stringField(m, "description"),
		Merchant:    stringField(m, "merchant"),
	}
	if o.Merchant == "" {
		o.Merchant = DefaultMerchant
	}
	return o
}

// Product is a purchased item. It has no reference to its order, products
// belong to the order extracted in the same pass and share its raw date.
type Product struct {
	Date           string `json:"date"`
	Product        string `json:"product"`
	Quantity       int    `json:"quantity"`
	Price          string `json:"price"`
	ShipmentStatus string `json:"shipment_status"`
}

func (p Product) ToMap() map[string]any {
	return map[string]any{
		"date":            p.Date,
		"product":         p.Product,
		"quantity":        p.Quantity,
		"price":           p.Price,
		"shipment_status": p.ShipmentStatus,
	}
}

// ProductFromMap is the inverse of Product.ToMap. Quantity accepts ints,
// floats (as decoded from json) and numeric strings, anything else is 1.
func ProductFromMap(m map[string]any) Product {
	return Product{
		Date:           stringField(m, "date"),
		Product:        stringField(m, "product"),
		Quantity:       quantityField(m, "quantity"),
		Price:          stringField(m, "price"),
		ShipmentStatus: stringField(m, "shipment_status"),
	}
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func quantityField(m map[string]any, key string) int {
	var n int
	switch v := m[key].(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 1
		}
		n = parsed
	default:
		return 1
	}
	if n < 1 {
		return 1
	}
	return n
}

var (
	orderIDPattern = regexp.MustCompile(`^[A-Z0-9-]+$`)
	amountPattern  = regexp.MustCompile(`^EUR\s*[\d,]+\.?\d*`)
)

// Validate reports whether o is well formed enough to be accepted: order id,
// date and amount must be present, the id must be made of uppercase letters,
// digits and dashes and the amount must be tagged with the EUR currency code.
func Validate(o Order) bool {
	if o.OrderID == "" || o.Date == "" || o.Amount == "" {
		return false
	}
	if !orderIDPattern.MatchString(o.OrderID) {
		return false
	}
	return amountPattern.MatchString(o.Amount)
}
